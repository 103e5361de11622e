package machine

import (
	"context"
	"math/rand/v2"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/connector"
	"github.com/ceyewan/idalloc/xerrors"
)

const maxRevertAttempts = 8

var errRevertConflict = xerrors.New("machine: etcd revert conflict")

// record 绑定记录，同时写入机器号键与实例键
type record struct {
	Instance   string `msgpack:"instance"`
	MachineID  int64  `msgpack:"machine_id"`
	MachineBit int    `msgpack:"machine_bit"`
	BoundAt    int64  `msgpack:"bound_at"`
}

// etcdStore 键布局：
//
//	<prefix>/<namespace>/machine/<id>       -> record
//	<prefix>/<namespace>/instance/<instance> -> record
//
// 两个键在同一事务中创建与删除，挂在同一个租约上。
// 租约失效时 etcd 删除全部绑定，对应的 leaseLost 通道随之关闭。
type etcdStore struct {
	conn     connector.EtcdConnector
	prefix   string
	leaseTTL time.Duration
	logger   clog.Logger

	mu        sync.Mutex
	lease     clientv3.LeaseID
	leaseLost chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	// bound 本进程经当前或更早租约建立的绑定，instance 键 -> 该租约的 leaseLost
	bound map[string]chan struct{}
}

func newEtcdStore(conn connector.EtcdConnector, prefix string, leaseTTL time.Duration, logger clog.Logger) *etcdStore {
	return &etcdStore{
		conn:     conn,
		prefix:   prefix,
		leaseTTL: leaseTTL,
		logger:   logger,
		bound:    make(map[string]chan struct{}),
	}
}

func (s *etcdStore) machinesPrefix(namespace string) string {
	return path.Join(s.prefix, namespace, "machine") + "/"
}

func (s *etcdStore) machineKey(namespace string, id int64) string {
	return s.machinesPrefix(namespace) + strconv.FormatInt(id, 10)
}

func (s *etcdStore) instanceKey(namespace string, instance InstanceID) string {
	return path.Join(s.prefix, namespace, "instance") + "/" + string(instance)
}

func (s *etcdStore) client() (*clientv3.Client, error) {
	client := s.conn.GetClient()
	if client == nil {
		return nil, connector.ErrClientNil
	}
	return client, nil
}

func (s *etcdStore) distribute(ctx context.Context, namespace string, machineBit int, instance InstanceID) (int64, error) {
	client, err := s.client()
	if err != nil {
		return 0, err
	}
	total := TotalMachineIDs(machineBit)
	ik := s.instanceKey(namespace, instance)

	resp, err := client.Get(ctx, ik)
	if err != nil {
		return 0, err
	}
	if len(resp.Kvs) > 0 {
		return boundID(resp.Kvs[0].Value, total)
	}

	taken, err := s.taken(ctx, client, namespace, total)
	if err != nil {
		return 0, err
	}
	if int64(len(taken)) >= total {
		return noMachineID, nil
	}

	opts, lost, err := s.leaseOptions(ctx, client)
	if err != nil {
		return 0, err
	}

	// 随机起点环形遍历，分散并发实例的竞争
	start := rand.Int64N(total)
	for i := range total {
		id := (start + i) % total
		if _, ok := taken[id]; ok {
			continue
		}

		val, err := msgpack.Marshal(&record{
			Instance:   string(instance),
			MachineID:  id,
			MachineBit: machineBit,
			BoundAt:    time.Now().UnixMilli(),
		})
		if err != nil {
			return 0, err
		}

		mk := s.machineKey(namespace, id)
		txn, err := client.Txn(ctx).
			If(
				clientv3.Compare(clientv3.ModRevision(mk), "=", 0),
				clientv3.Compare(clientv3.ModRevision(ik), "=", 0),
			).
			Then(
				clientv3.OpPut(mk, string(val), opts...),
				clientv3.OpPut(ik, string(val), opts...),
			).
			Else(clientv3.OpGet(ik)).
			Commit()
		if err != nil {
			return 0, err
		}
		if txn.Succeeded {
			if lost != nil {
				s.mu.Lock()
				s.bound[ik] = lost
				s.mu.Unlock()
			}
			return id, nil
		}
		// 同一实例被并发绑定，直接沿用
		if kvs := txn.Responses[0].GetResponseRange().Kvs; len(kvs) > 0 {
			return boundID(kvs[0].Value, total)
		}
	}
	return noMachineID, nil
}

// taken 返回 [0, total) 内已被占用的机器号，更宽位宽下绑定的大号不计入
func (s *etcdStore) taken(ctx context.Context, client *clientv3.Client, namespace string, total int64) (map[int64]struct{}, error) {
	prefix := s.machinesPrefix(namespace)
	resp, err := client.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		id, err := strconv.ParseInt(string(kv.Key[len(prefix):]), 10, 64)
		if err != nil || id >= total {
			continue
		}
		taken[id] = struct{}{}
	}
	return taken, nil
}

func boundID(val []byte, total int64) (int64, error) {
	var rec record
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return 0, xerrors.Wrap(err, "decode binding")
	}
	if rec.MachineID >= total {
		return boundOutside, nil
	}
	return rec.MachineID, nil
}

func (s *etcdStore) revert(ctx context.Context, namespace string, instance InstanceID) (int64, bool, error) {
	client, err := s.client()
	if err != nil {
		return 0, false, err
	}
	ik := s.instanceKey(namespace, instance)

	for range maxRevertAttempts {
		resp, err := client.Get(ctx, ik)
		if err != nil {
			return 0, false, err
		}
		if len(resp.Kvs) == 0 {
			return 0, false, nil
		}

		var rec record
		if err := msgpack.Unmarshal(resp.Kvs[0].Value, &rec); err != nil {
			return 0, false, xerrors.Wrap(err, "decode binding")
		}
		txn, err := client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(ik), "=", resp.Kvs[0].ModRevision)).
			Then(clientv3.OpDelete(ik), clientv3.OpDelete(s.machineKey(namespace, rec.MachineID))).
			Commit()
		if err != nil {
			return 0, false, err
		}
		if txn.Succeeded {
			s.mu.Lock()
			delete(s.bound, ik)
			s.mu.Unlock()
			return rec.MachineID, true, nil
		}
	}
	return 0, false, xerrors.Wrapf(errRevertConflict, "%s after %d attempts", ik, maxRevertAttempts)
}

func (s *etcdStore) lost(namespace string, instance InstanceID) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.bound[s.instanceKey(namespace, instance)]; ok {
		return ch
	}
	return nil
}

// leaseOptions 首次分配时申请租约并启动保活，租约丢失后下一次分配重新申请
//
// 返回的通道在该租约失效时关闭，未启用租约时为 nil。
func (s *etcdStore) leaseOptions(ctx context.Context, client *clientv3.Client) ([]clientv3.OpOption, chan struct{}, error) {
	if s.leaseTTL <= 0 {
		return nil, nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease != 0 {
		return []clientv3.OpOption{clientv3.WithLease(s.lease)}, s.leaseLost, nil
	}

	grant, err := client.Grant(ctx, int64(s.leaseTTL/time.Second))
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "grant lease")
	}
	kaCtx, cancel := context.WithCancel(context.Background())
	ch, err := client.KeepAlive(kaCtx, grant.ID)
	if err != nil {
		cancel()
		if _, revokeErr := client.Revoke(context.Background(), grant.ID); revokeErr != nil {
			s.logger.Warn("etcd revoke lease failed during cleanup", clog.Error(revokeErr))
		}
		return nil, nil, xerrors.Wrap(err, "keep alive lease")
	}

	s.lease, s.leaseLost, s.cancel, s.done = grant.ID, make(chan struct{}), cancel, make(chan struct{})
	go s.keepAlive(grant.ID, ch, cancel, s.done)
	s.logger.Info("machine lease granted", clog.Int64("lease_id", int64(grant.ID)), clog.Duration("ttl", s.leaseTTL))
	return []clientv3.OpOption{clientv3.WithLease(grant.ID)}, s.leaseLost, nil
}

func (s *etcdStore) keepAlive(id clientv3.LeaseID, ch <-chan *clientv3.LeaseKeepAliveResponse, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	for range ch {
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease == id {
		// 通道在未 Close 的情况下关闭，说明租约已过期，绑定已被 etcd 删除
		s.logger.Error("machine lease lost", clog.Int64("lease_id", int64(id)))
		cancel()
		close(s.leaseLost)
		s.lease, s.leaseLost, s.cancel = 0, nil, nil
	}
}

func (s *etcdStore) close(ctx context.Context) error {
	s.mu.Lock()
	lease, lost, cancel, done := s.lease, s.leaseLost, s.cancel, s.done
	s.lease, s.leaseLost, s.cancel = 0, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	// 撤销租约会删除绑定，仍在使用机器号的持有者必须停下
	defer close(lost)

	client, err := s.client()
	if err != nil {
		return err
	}
	if _, err := client.Revoke(ctx, lease); err != nil {
		return xerrors.Wrap(err, "revoke lease")
	}
	s.logger.Info("machine lease revoked", clog.Int64("lease_id", int64(lease)))
	return nil
}
