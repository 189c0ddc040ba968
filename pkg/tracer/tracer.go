// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package tracer wires an OpenTelemetry tracer provider with a jaeger
// exporter. Tracing stays off unless an endpoint is configured.
package tracer

import (
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const _serviceName = "switchvault-core"

// Config is the structure of tracer configuration
type Config struct {
	// ServiceName customize service name
	ServiceName string `yaml:"serviceName"`
	// EndPoint the jaeger collector endpoint
	EndPoint string `yaml:"endpoint"`
	// InstanceID MUST be unique for each instance of the same service
	InstanceID string `yaml:"instanceID"`
	// SamplingRatio customize sampling ratio, [0, 1]
	SamplingRatio string `yaml:"samplingRatio"`
}

// Option the tracer provider option
type Option func(ops *optionParams) error

type optionParams struct {
	serviceName   string
	endpoint      string
	instanceID    string
	samplingRatio string
}

// WithServiceName defines the service name
func WithServiceName(name string) Option {
	return func(ops *optionParams) error {
		ops.serviceName = name
		return nil
	}
}

// WithEndpoint defines the full URL to the jaeger collector
func WithEndpoint(endpoint string) Option {
	return func(ops *optionParams) error {
		ops.endpoint = endpoint
		return nil
	}
}

// WithInstanceID defines the instance id
func WithInstanceID(instanceID string) Option {
	return func(ops *optionParams) error {
		ops.instanceID = instanceID
		return nil
	}
}

// WithSamplingRatio defines the sampling ratio
func WithSamplingRatio(samplingRatio string) Option {
	return func(ops *optionParams) error {
		ops.samplingRatio = samplingRatio
		return nil
	}
}

// NewProvider creates an opentelemetry tracer provider and registers it
// globally. A nil provider with a nil error means tracing is disabled.
func NewProvider(opts ...Option) (*tracesdk.TracerProvider, error) {
	var ops optionParams
	for _, opt := range opts {
		if err := opt(&ops); err != nil {
			return nil, err
		}
	}
	if ops.endpoint == "" {
		return nil, nil
	}
	sampler := tracesdk.AlwaysSample()
	if ops.samplingRatio != "" {
		ratio, err := strconv.ParseFloat(ops.samplingRatio, 64)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid sampling ratio %s", ops.samplingRatio)
		}
		sampler = tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))
	}
	if ops.serviceName == "" {
		ops.serviceName = _serviceName
	}
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(ops.endpoint)))
	if err != nil {
		return nil, err
	}
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(ops.serviceName)}
	if ops.instanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceIDKey.String(ops.instanceID))
	}
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithSampler(sampler),
		tracesdk.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}
