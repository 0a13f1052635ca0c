package tenant

import (
	"context"
	"sync"

	"github.com/petshop-system/petshop-management/internal/model"
)

// Stack 当前执行单元的租户栈
// 每个请求/任务持有独立的栈, 绝不跨并发执行单元共享
type Stack struct {
	mu     sync.Mutex
	frames []*model.Tenant
}

type stackKey struct{}

// NewContext 为一个执行单元挂载全新的租户栈
func NewContext(parent context.Context) context.Context {
	return context.WithValue(parent, stackKey{}, &Stack{})
}

// StackFrom 取出当前执行单元的租户栈, 未挂载时返回nil
func StackFrom(ctx context.Context) *Stack {
	s, _ := ctx.Value(stackKey{}).(*Stack)
	return s
}

// Current 返回栈顶租户, 栈为空或未挂载时返回false
func Current(ctx context.Context) (*model.Tenant, bool) {
	s := StackFrom(ctx)
	if s == nil {
		return nil, false
	}
	return s.Current()
}

// SetCurrent 直接替换栈顶值, 不压入新帧
// 栈为空时压入单帧; t为nil表示当前无租户
func SetCurrent(ctx context.Context, t *model.Tenant) {
	s := StackFrom(ctx)
	if s == nil {
		return
	}
	s.SetCurrent(t)
}

// Clear 无条件清空整个栈, 供调度器/CLI批处理入口和测试teardown使用
func Clear(ctx context.Context) {
	if s := StackFrom(ctx); s != nil {
		s.Clear()
	}
}

// WithScope 在租户作用域内执行fn
// 进入时压栈, 任何退出路径(正常返回/错误/panic)都会弹栈,
// 嵌套作用域退出后恢复外层租户
func WithScope(ctx context.Context, t *model.Tenant, fn func(ctx context.Context) error) error {
	s := StackFrom(ctx)
	if s == nil {
		ctx = NewContext(ctx)
		s = StackFrom(ctx)
	}

	s.Push(t)
	defer s.Pop()

	return fn(ctx)
}

func (s *Stack) Current() (*model.Tenant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return nil, false
	}
	top := s.frames[len(s.frames)-1]
	if top == nil {
		return nil, false
	}
	return top, true
}

func (s *Stack) SetCurrent(t *model.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		s.frames = append(s.frames, t)
		return
	}
	s.frames[len(s.frames)-1] = t
}

func (s *Stack) Push(t *model.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, t)
}

// Pop 弹出栈顶帧, 空栈时为no-op(容忍防御性清理代码)
func (s *Stack) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = s.frames[:0]
}

// Depth 当前栈深度
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
