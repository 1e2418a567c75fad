package otel

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNodeResourceDescribesContract(t *testing.T) {
	res, err := NodeResource(Config{
		Environment:     "staging",
		Network:         "donex-local",
		ContractAddress: "contract",
		AddressPrefix:   " ",
	})
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs[semconv.ServiceNameKey] != DefaultServiceName {
		t.Fatalf("service name = %q", attrs[semconv.ServiceNameKey])
	}
	if attrs[NetworkKey] != "donex-local" || attrs[ContractAddressKey] != "contract" {
		t.Fatalf("missing contract attributes %v", attrs)
	}
	if attrs[semconv.DeploymentEnvironmentKey] != "staging" {
		t.Fatalf("missing environment %v", attrs)
	}
	if _, ok := attrs[AddressPrefixKey]; ok {
		t.Fatalf("blank prefix should be omitted")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{SampleRatio: 3}.withDefaults()
	if cfg.ServiceName != DefaultServiceName || cfg.Endpoint != defaultEndpoint {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SampleRatio != 1 || cfg.ExportInterval != 15*time.Second {
		t.Fatalf("unexpected sampling defaults %+v", cfg)
	}
	if got := (Config{SampleRatio: 0.25}).withDefaults().SampleRatio; got != 0.25 {
		t.Fatalf("sample ratio overridden: %v", got)
	}
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders("api-key=abc, empty=,=skip,broken, x = y ")
	if headers["api-key"] != "abc" || headers["x"] != "y" {
		t.Fatalf("unexpected headers %v", headers)
	}
	if _, ok := headers["empty"]; !ok {
		t.Fatalf("empty value should be kept")
	}
	if len(headers) != 3 {
		t.Fatalf("unexpected header count %d: %v", len(headers), headers)
	}
}

func TestTracerAvailableBeforeInit(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "host.query")
	span.End()
}
