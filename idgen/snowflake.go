package idgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/machine"
	"github.com/ceyewan/idalloc/metrics"
	"github.com/ceyewan/idalloc/xerrors"
)

// Snowflake 雪花算法生成器
//
// 位结构（高位到低位）：41bit 毫秒时间戳 | MachineBit 机器号 | SequenceBit 序列号。
// 机器号在创建时从 machine.Distributor 获取，Close 时释放。
// 绑定被后端收回后 Next 返回 ErrMachineIDLost，需要重新创建生成器。
type Snowflake struct {
	machines  machine.Distributor
	namespace string
	instance  machine.InstanceID
	machineID int64
	lost      <-chan struct{}

	epoch       time.Time
	machineBit  int
	sequenceBit int
	maxSequence int64
	maxDrift    time.Duration
	maxWait     time.Duration

	clock     clock.Clock
	logger    clog.Logger
	backwards metrics.Counter

	mu       sync.Mutex
	sequence int64
	lastTime int64
	closed   atomic.Bool

	// revertMu 串行化 Close，reverted 只在 Revert 成功后置位
	revertMu sync.Mutex
	reverted bool
}

// SnowflakeState 解析后的 ID 组成
type SnowflakeState struct {
	Timestamp time.Time
	MachineID int64
	Sequence  int64
}

// NewSnowflake 绑定机器号并创建生成器
//
// 号空间已满时原样返回 machine.ErrMachineIDOverflow，调用方应中止启动。
//
//	sf, err := idgen.NewSnowflake(ctx, &idgen.SnowflakeConfig{Namespace: "order"}, machines)
//	if err != nil {
//		return err
//	}
//	defer sf.Close(ctx)
//	id, _ := sf.Next(ctx)
func NewSnowflake(ctx context.Context, cfg *SnowflakeConfig, machines machine.Distributor, opts ...Option) (*Snowflake, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if machines == nil {
		return nil, ErrDistributorNil
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	if o.clock.Now().Before(c.Epoch) {
		return nil, xerrors.WithCode(ErrInvalidInput, "epoch_in_future")
	}
	backwards, err := o.meter.Counter(MetricClockBackwards, "时钟回拨次数")
	if err != nil {
		return nil, err
	}

	machineID, err := machines.Distribute(ctx, c.Namespace, c.MachineBit, c.Instance)
	if err != nil {
		o.logger.ErrorContext(ctx, "distribute machine id failed",
			clog.String("ns", c.Namespace), clog.String("instance", string(c.Instance)), clog.Error(err))
		return nil, err
	}

	s := &Snowflake{
		machines:    machines,
		namespace:   c.Namespace,
		instance:    c.Instance,
		machineID:   machineID,
		lost:        machines.Lost(c.Namespace, c.Instance),
		epoch:       c.Epoch,
		machineBit:  c.MachineBit,
		sequenceBit: c.SequenceBit,
		maxSequence: 1<<c.SequenceBit - 1,
		maxDrift:    c.MaxDrift,
		maxWait:     c.MaxWait,
		clock:       o.clock,
		logger:      o.logger,
		backwards:   backwards,
		lastTime:    -1,
	}
	s.logger.Info("snowflake generator created",
		clog.String("ns", c.Namespace),
		clog.String("instance", string(c.Instance)),
		clog.Int64("machine_id", machineID),
		clog.Int("machine_bit", c.MachineBit),
		clog.Int("sequence_bit", c.SequenceBit),
	)
	return s, nil
}

func (s *Snowflake) MachineID() int64 { return s.machineID }

func (s *Snowflake) Instance() machine.InstanceID { return s.instance }

// Next 返回下一个 ID
//
// 时钟回拨处理：
//   - 回拨 <= MaxDrift 且本毫秒序列号未满：沿用上一毫秒
//   - 回拨 <= MaxWait：等待时钟追上
//   - 更大的回拨：返回 ErrClockBackwards
func (s *Snowflake) Next(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	select {
	case <-s.lost:
		s.logger.ErrorContext(ctx, "machine id binding lost, refusing to generate",
			clog.String("ns", s.namespace), clog.Int64("machine_id", s.machineID))
		return 0, xerrors.Wrapf(ErrMachineIDLost, "namespace %s, machine id %d", s.namespace, s.machineID)
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.millis()
	if now < s.lastTime {
		drift := time.Duration(s.lastTime-now) * time.Millisecond
		s.backwards.Inc(ctx)

		switch {
		case drift <= s.maxDrift && s.sequence < s.maxSequence:
			now = s.lastTime
		case drift <= s.maxWait:
			if err := s.sleep(ctx, drift+time.Millisecond); err != nil {
				return 0, err
			}
			if now = s.millis(); now < s.lastTime {
				return 0, xerrors.Wrapf(ErrClockBackwards, "still %v behind after waiting", time.Duration(s.lastTime-now)*time.Millisecond)
			}
		default:
			s.logger.WarnContext(ctx, "clock moved backwards", clog.Duration("drift", drift), clog.Duration("max_wait", s.maxWait))
			return 0, xerrors.Wrapf(ErrClockBackwards, "drift: %v (max: %v)", drift, s.maxWait)
		}
	}

	if err := s.checkTimestamp(now); err != nil {
		return 0, err
	}
	if now == s.lastTime {
		if s.sequence < s.maxSequence {
			s.sequence++
		} else {
			// 序列号用尽，等待下一毫秒；失败时状态不变
			for now <= s.lastTime {
				if err := s.sleep(ctx, time.Duration(s.lastTime-now+1)*time.Millisecond); err != nil {
					return 0, err
				}
				now = s.millis()
			}
			if err := s.checkTimestamp(now); err != nil {
				return 0, err
			}
			s.sequence = 0
		}
	} else {
		s.sequence = 0
	}
	s.lastTime = now

	return now<<(s.machineBit+s.sequenceBit) | s.machineID<<s.sequenceBit | s.sequence, nil
}

// Parse 拆解由本生成器（或相同位结构）生成的 ID
func (s *Snowflake) Parse(id int64) SnowflakeState {
	return SnowflakeState{
		Timestamp: s.epoch.Add(time.Duration(id>>(s.machineBit+s.sequenceBit)) * time.Millisecond),
		MachineID: id >> s.sequenceBit & (1<<s.machineBit - 1),
		Sequence:  id & s.maxSequence,
	}
}

// Close 停止生成并释放机器号，可重复调用；释放失败时再次 Close 会重试
func (s *Snowflake) Close(ctx context.Context) error {
	s.closed.Store(true)

	s.revertMu.Lock()
	defer s.revertMu.Unlock()
	if s.reverted {
		return nil
	}
	if err := s.machines.Revert(ctx, s.namespace, s.instance); err != nil {
		s.logger.WarnContext(ctx, "revert machine id failed, close can be retried",
			clog.String("ns", s.namespace), clog.Int64("machine_id", s.machineID), clog.Error(err))
		return err
	}
	s.reverted = true
	s.logger.Info("snowflake generator closed", clog.String("ns", s.namespace), clog.Int64("machine_id", s.machineID))
	return nil
}

// checkTimestamp 时间戳必须能放进 41 位
func (s *Snowflake) checkTimestamp(now int64) error {
	if now >= 1<<timestampBit {
		return xerrors.Wrapf(ErrTimestampOverflow, "%d ms since epoch %s", now, s.epoch.Format(time.RFC3339))
	}
	return nil
}

func (s *Snowflake) millis() int64 {
	return s.clock.Now().Sub(s.epoch).Milliseconds()
}

func (s *Snowflake) sleep(ctx context.Context, d time.Duration) error {
	t := s.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
