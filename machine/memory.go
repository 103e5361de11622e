package machine

import (
	"context"
	"sync"
)

type binding struct {
	instances map[InstanceID]int64
	machines  map[int64]InstanceID
}

// memoryStore 进程内绑定表，分配最小的空闲号
type memoryStore struct {
	mu     sync.Mutex
	spaces map[string]*binding
}

func newMemoryStore() *memoryStore {
	return &memoryStore{spaces: make(map[string]*binding)}
}

func (s *memoryStore) space(namespace string) *binding {
	b, ok := s.spaces[namespace]
	if !ok {
		b = &binding{instances: make(map[InstanceID]int64), machines: make(map[int64]InstanceID)}
		s.spaces[namespace] = b
	}
	return b
}

func (s *memoryStore) distribute(_ context.Context, namespace string, machineBit int, instance InstanceID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.space(namespace)
	total := TotalMachineIDs(machineBit)
	if id, ok := b.instances[instance]; ok {
		if id >= total {
			return boundOutside, nil
		}
		return id, nil
	}
	for id := range total {
		if _, taken := b.machines[id]; !taken {
			b.machines[id] = instance
			b.instances[instance] = id
			return id, nil
		}
	}
	return noMachineID, nil
}

func (s *memoryStore) revert(_ context.Context, namespace string, instance InstanceID) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.spaces[namespace]
	if !ok {
		return 0, false, nil
	}
	id, ok := b.instances[instance]
	if !ok {
		return 0, false, nil
	}
	delete(b.instances, instance)
	delete(b.machines, id)
	return id, true, nil
}

func (s *memoryStore) close(context.Context) error { return nil }

func (s *memoryStore) lost(string, InstanceID) <-chan struct{} { return nil }
