package otxhook

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
)

// report hands a non-fatal instrumentation error to the global OTel error
// handler and, in debug mode, emits it as a warning record.
func (i *Instrumentation) report(ctx context.Context, err error) {
	otel.Handle(err)
	i.emit(ctx, err)
}

// debug reports err only in debug mode.
func (i *Instrumentation) debugReport(ctx context.Context, err error) {
	if !i.debug {
		return
	}
	i.report(ctx, err)
}

func (i *Instrumentation) emit(ctx context.Context, err error) {
	if i.logger == nil {
		return
	}

	var rec otellog.Record
	rec.SetTimestamp(time.Now())
	rec.SetSeverity(otellog.SeverityWarn)
	rec.SetSeverityText("WARN")
	rec.SetBody(otellog.StringValue(err.Error()))
	rec.AddAttributes(otellog.String("otxhook.instrumentation", i.name))

	i.logger.Emit(ctx, rec)
}

// recoverTo converts a recovered panic into a reported error.
func (i *Instrumentation) recoverTo(ctx context.Context, where, operation string, r any) {
	i.report(ctx, fmt.Errorf("otxhook: %s hook for %s panicked: %v", where, operation, r))
}
