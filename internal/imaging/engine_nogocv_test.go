//go:build !gocv

package imaging

import (
	"errors"
	"testing"
)

func TestNewEngine_OpenCVUnavailable(t *testing.T) {
	if _, err := NewEngine(EngineOpenCV); !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}
