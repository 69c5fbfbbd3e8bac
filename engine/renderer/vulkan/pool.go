package vulkan

import "sync"

type LockGroup string

const (
	PipelineManagement LockGroup = "pipeline_management"
	MemoryManagement   LockGroup = "memory_management"
)

/**
 * @brief Serializes access to externally synchronized Vulkan objects. Queues
 * get a mutex per family, everything else is grouped by concern.
 */
type VulkanLockPool struct {
	mu           sync.Mutex
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (lp *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	lp.mu.Lock()
	l, ok := lp.locks[group]
	if !ok {
		l = &sync.Mutex{}
		lp.locks[group] = l
	}
	lp.mu.Unlock()
	return l
}

func (lp *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lp.lock(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (lp *VulkanLockPool) queueLock(family uint32) *sync.Mutex {
	lp.mu.Lock()
	l, ok := lp.queueMutexes[family]
	if !ok {
		l = &sync.Mutex{}
		lp.queueMutexes[family] = l
	}
	lp.mu.Unlock()
	return l
}

// SafeQueueCall runs fn holding the lock of the given queue family.
func (lp *VulkanLockPool) SafeQueueCall(family uint32, fn func() error) error {
	l := lp.queueLock(family)
	l.Lock()
	defer l.Unlock()
	return fn()
}
