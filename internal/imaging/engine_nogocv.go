//go:build !gocv

package imaging

func newOpenCVEngine() (Engine, error) {
	return nil, ErrEngineUnavailable
}
