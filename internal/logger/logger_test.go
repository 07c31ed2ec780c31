package logger

import (
	"context"
	"testing"
)

func TestPrepareLoggerStoresInContext(t *testing.T) {
	ctx, log := PrepareLogger(context.Background())
	if log == nil {
		t.Fatal("PrepareLogger returned nil logger")
	}
	if got := GetLogger(ctx); got != log {
		t.Error("GetLogger did not return the logger stored by PrepareLogger")
	}
}

func TestGetLoggerNeverReturnsNil(t *testing.T) {
	if GetLogger(context.Background()) == nil {
		t.Error("GetLogger returned nil for a bare context")
	}
	if GetLogger(nil) == nil { //nolint:staticcheck // nil context is the case under test
		t.Error("GetLogger returned nil for a nil context")
	}
}

func TestNewProductionLogger(t *testing.T) {
	if NewProductionLogger() == nil {
		t.Error("NewProductionLogger returned nil")
	}
}
