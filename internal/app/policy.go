package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a recipient whose channel refused a frame.
type Policy interface {
	OnSendFailure(sid domain.ConnectionID, err error) BackpressureAction
}

// DropPolicy loses the frame and keeps the recipient.
type DropPolicy struct{}

func (DropPolicy) OnSendFailure(domain.ConnectionID, error) BackpressureAction { return DropFrame }

// KickPolicy closes recipients whose send buffer is full.
type KickPolicy struct{}

func (KickPolicy) OnSendFailure(_ domain.ConnectionID, err error) BackpressureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return KickMember
	}
	return DropFrame
}

// PolicyByName maps the "backpressure" config value to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "disconnect":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
