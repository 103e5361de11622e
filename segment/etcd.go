package segment

import (
	"context"
	"strconv"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/idalloc/connector"
	"github.com/ceyewan/idalloc/xerrors"
)

// maxCASAttempts 单次 IncrBy 的最大比较交换次数
const maxCASAttempts = 64

var errWriteConflict = xerrors.New("segment: etcd write conflict")

// etcdStore 以十进制字符串保存计数器，用 ModRevision 比较交换推进
type etcdStore struct {
	conn connector.EtcdConnector
}

func newEtcdStore(conn connector.EtcdConnector) *etcdStore {
	return &etcdStore{conn: conn}
}

func (s *etcdStore) IncrBy(ctx context.Context, key string, offset, step int64) (int64, error) {
	client := s.conn.GetClient()
	if client == nil {
		return 0, connector.ErrClientNil
	}

	resp, err := client.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	kvs := resp.Kvs

	for range maxCASAttempts {
		current, rev := offset, int64(0)
		if len(kvs) > 0 {
			current, err = strconv.ParseInt(string(kvs[0].Value), 10, 64)
			if err != nil {
				return 0, xerrors.Wrapf(err, "parse counter %s", key)
			}
			rev = kvs[0].ModRevision
		}

		next := current + step
		txn, err := client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", rev)).
			Then(clientv3.OpPut(key, strconv.FormatInt(next, 10))).
			Else(clientv3.OpGet(key)).
			Commit()
		if err != nil {
			return 0, err
		}
		if txn.Succeeded {
			return next, nil
		}
		// 被其他实例抢先，用 Else 分支读到的最新值重试
		kvs = txn.Responses[0].GetResponseRange().Kvs
	}
	return 0, xerrors.Wrapf(errWriteConflict, "%s after %d attempts", key, maxCASAttempts)
}
