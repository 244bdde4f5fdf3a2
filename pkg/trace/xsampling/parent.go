package xsampling

import "fmt"

// ParentBasedSampler 根据父级采样标志委托的组合采样器。
//
// 有有效父级时按 远端/本地 × 已采样/未采样 四种情况选择委托采样器，
// 否则使用 root 采样器。
type ParentBasedSampler struct {
	root                   Sampler
	remoteParentSampled    Sampler
	remoteParentNotSampled Sampler
	localParentSampled     Sampler
	localParentNotSampled  Sampler
}

// ParentBasedOption 配置 ParentBasedSampler 的委托采样器。nil 值被忽略。
type ParentBasedOption func(*ParentBasedSampler)

// WithRemoteParentSampled 设置远端父级已采样时的采样器，默认 AlwaysOn。
func WithRemoteParentSampled(s Sampler) ParentBasedOption {
	return func(p *ParentBasedSampler) {
		if s != nil {
			p.remoteParentSampled = s
		}
	}
}

// WithRemoteParentNotSampled 设置远端父级未采样时的采样器，默认 AlwaysOff。
func WithRemoteParentNotSampled(s Sampler) ParentBasedOption {
	return func(p *ParentBasedSampler) {
		if s != nil {
			p.remoteParentNotSampled = s
		}
	}
}

// WithLocalParentSampled 设置本地父级已采样时的采样器，默认 AlwaysOn。
func WithLocalParentSampled(s Sampler) ParentBasedOption {
	return func(p *ParentBasedSampler) {
		if s != nil {
			p.localParentSampled = s
		}
	}
}

// WithLocalParentNotSampled 设置本地父级未采样时的采样器，默认 AlwaysOff。
func WithLocalParentNotSampled(s Sampler) ParentBasedOption {
	return func(p *ParentBasedSampler) {
		if s != nil {
			p.localParentNotSampled = s
		}
	}
}

// ParentBased 创建父级委托采样器。root 为 nil 时使用 AlwaysOn。
func ParentBased(root Sampler, opts ...ParentBasedOption) *ParentBasedSampler {
	if root == nil {
		root = AlwaysOn()
	}
	s := &ParentBasedSampler{
		root:                   root,
		remoteParentSampled:    AlwaysOn(),
		remoteParentNotSampled: AlwaysOff(),
		localParentSampled:     AlwaysOn(),
		localParentNotSampled:  AlwaysOff(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ShouldSample 实现 Sampler。
func (s *ParentBasedSampler) ShouldSample(p Parameters) Result {
	parent := p.ParentContext
	if !parent.IsValid() {
		return s.root.ShouldSample(p)
	}
	switch {
	case parent.IsRemote() && parent.IsSampled():
		return s.remoteParentSampled.ShouldSample(p)
	case parent.IsRemote():
		return s.remoteParentNotSampled.ShouldSample(p)
	case parent.IsSampled():
		return s.localParentSampled.ShouldSample(p)
	default:
		return s.localParentNotSampled.ShouldSample(p)
	}
}

// Description 实现 Sampler。
func (s *ParentBasedSampler) Description() string {
	return fmt.Sprintf("ParentBased{root:%s,remoteParentSampled:%s,remoteParentNotSampled:%s,localParentSampled:%s,localParentNotSampled:%s}",
		s.root.Description(),
		s.remoteParentSampled.Description(),
		s.remoteParentNotSampled.Description(),
		s.localParentSampled.Description(),
		s.localParentNotSampled.Description(),
	)
}

var _ Sampler = (*ParentBasedSampler)(nil)
