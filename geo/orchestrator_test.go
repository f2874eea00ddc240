package geo

import (
	"errors"
	"testing"
)

// stubExtractor is a scriptable extractor that records whether it ran.
type stubExtractor struct {
	name   string
	result Result
	panics bool
	called bool
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(_ []byte) Result {
	s.called = true
	if s.panics {
		panic("corrupt buffer")
	}
	return s.result
}

func TestOrchestrator_FirstStrategyWins(t *testing.T) {
	t.Parallel()

	a := &stubExtractor{name: "a", result: Found(Location{Latitude: 40.0, Longitude: -74.006})}
	b := &stubExtractor{name: "b", result: Found(Location{Latitude: 1, Longitude: 1})}

	res := NewOrchestrator(a, b).Extract(nil)
	if !res.HasGPS() {
		t.Fatal("expected GPS result")
	}
	if res.Location.Latitude != 40.0 {
		t.Errorf("expected strategy a's result, got latitude %v", res.Location.Latitude)
	}
	if b.called {
		t.Error("strategy b must not run when a yields GPS")
	}
}

func TestOrchestrator_FallsBackToSecondStrategy(t *testing.T) {
	t.Parallel()

	a := &stubExtractor{name: "a", result: NotFound()}
	b := &stubExtractor{name: "b", result: Found(Location{Latitude: 51.5, Longitude: -0.12})}

	res := NewOrchestrator(a, b).Extract(nil)
	if !res.HasGPS() {
		t.Fatal("expected GPS result from fallback strategy")
	}
	if res.Location.Latitude != 51.5 {
		t.Errorf("expected strategy b's result, got latitude %v", res.Location.Latitude)
	}
	if !a.called {
		t.Error("strategy a should have been attempted first")
	}
}

func TestOrchestrator_TotalFailureDegradesToNotFound(t *testing.T) {
	t.Parallel()

	a := &stubExtractor{name: "a", result: Failed(errors.New("parse error"))}
	b := &stubExtractor{name: "b", result: NotFound()}

	res := NewOrchestrator(a, b).Extract(nil)
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected NotFound, got outcome %v", res.Outcome)
	}
	if res.HasGPS() {
		t.Error("total failure must not report GPS")
	}
	if res.CameraMake != "" || res.CameraModel != "" {
		t.Error("total failure must leave camera fields empty")
	}
}

func TestOrchestrator_CameraFieldsSurviveMiss(t *testing.T) {
	t.Parallel()

	noGPS := NotFound()
	noGPS.CameraMake = "TestCam"
	noGPS.CameraModel = "T1000"
	a := &stubExtractor{name: "a", result: noGPS}
	b := &stubExtractor{name: "b", result: NotFound()}

	res := NewOrchestrator(a, b).Extract(nil)
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected NotFound, got %v", res.Outcome)
	}
	if res.CameraMake != "TestCam" || res.CameraModel != "T1000" {
		t.Errorf("camera fields dropped on miss: %q %q", res.CameraMake, res.CameraModel)
	}
}

func TestOrchestrator_RecoversPanickingExtractor(t *testing.T) {
	t.Parallel()

	a := &stubExtractor{name: "a", panics: true}
	b := &stubExtractor{name: "b", result: Found(Location{Latitude: 2, Longitude: 3})}

	res := NewOrchestrator(a, b).Extract(nil)
	if !res.HasGPS() {
		t.Fatal("panic in one extractor must not abort the chain")
	}
	if res.Location.Longitude != 3 {
		t.Errorf("expected strategy b's result, got longitude %v", res.Location.Longitude)
	}
}

func TestOrchestrator_EmptyChain(t *testing.T) {
	t.Parallel()

	res := NewOrchestrator().Extract([]byte{0x00})
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected NotFound from empty chain, got %v", res.Outcome)
	}
}

func TestNewDefaultOrchestrator_MockMode(t *testing.T) {
	t.Parallel()

	o := NewDefaultOrchestrator(ExtractorConfig{UseMock: true, MockLatitude: 40.0, MockLongitude: -74.006})
	res := o.Extract([]byte("not an image at all"))
	if !res.HasGPS() {
		t.Fatal("mock chain must always report GPS")
	}
	if res.Location.Latitude != 40.0 || res.Location.Longitude != -74.006 {
		t.Errorf("unexpected mock coordinates: %+v", res.Location)
	}
}

func TestNewDefaultOrchestrator_RealChainHandlesGarbage(t *testing.T) {
	t.Parallel()

	o := NewDefaultOrchestrator(ExtractorConfig{})
	res := o.Extract([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("garbage input must degrade to NotFound, got %v", res.Outcome)
	}
}
