package app

import (
	"context"

	"github.com/bft-labs/tpmsrelay/internal/domain"
)

type noopMetrics struct{}

func (noopMetrics) FrameDecoded(domain.Variant)         {}
func (noopMetrics) DecodeFailed(domain.Variant, string) {}
func (noopMetrics) FrameUnmatched()                     {}
func (noopMetrics) CaptureDropped()                     {}
func (noopMetrics) QueueUpserted()                      {}
func (noopMetrics) QueueFull()                          {}
func (noopMetrics) QueueSize(int)                       {}
func (noopMetrics) Transmitted(bool)                    {}
func (noopMetrics) Evicted()                            {}

type noopTelemetry struct{}

func (noopTelemetry) Reading(context.Context, domain.Reading) {}
func (noopTelemetry) Line(context.Context, string)            {}
