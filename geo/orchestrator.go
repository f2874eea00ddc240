package geo

import (
	"fmt"
	"log"
)

// Orchestrator runs a fixed chain of extractors in priority order and returns
// the first result carrying GPS data. It is stateless per call, never retries
// and never lets a panic or error escape: total failure degrades to a
// well-formed NotFound result the caller can branch on.
type Orchestrator struct {
	extractors []Extractor
}

// NewOrchestrator builds an orchestrator over the given chain. Order matters:
// earlier extractors win ties because they are expected to return richer
// metadata when they succeed.
func NewOrchestrator(extractors ...Extractor) *Orchestrator {
	return &Orchestrator{extractors: extractors}
}

// ExtractorConfig selects the extraction chain at construction time,
// replacing scattered module-level mock flags.
type ExtractorConfig struct {
	UseMock       bool
	MockLatitude  float64
	MockLongitude float64
}

// NewDefaultOrchestrator wires the standard chain: the structured EXIF parse
// first, the manual segment scan as fallback, or the mock alone when
// configured.
func NewDefaultOrchestrator(cfg ExtractorConfig) *Orchestrator {
	if cfg.UseMock {
		log.Printf("geo: using mock extractor at (%f, %f)", cfg.MockLatitude, cfg.MockLongitude)
		return NewOrchestrator(NewMockExtractor(cfg.MockLatitude, cfg.MockLongitude))
	}
	return NewOrchestrator(NewExifExtractor(), NewSegmentExtractor())
}

// Extract runs the chain against the raw image buffer. Extractor failures are
// logged and swallowed; callers cannot distinguish "no GPS present" from
// "parse failed" because both lead to the same manual-pin fallback. Camera
// make/model from a GPS-less parse still survive a total miss.
func (o *Orchestrator) Extract(data []byte) Result {
	miss := NotFound()
	for _, ex := range o.extractors {
		res := o.runExtractor(ex, data)
		if res.HasGPS() {
			return res
		}
		if res.Outcome == OutcomeFailed && res.Err != nil {
			log.Printf("geo: extractor %s failed: %v", ex.Name(), res.Err)
			continue
		}
		if miss.CameraMake == "" {
			miss.CameraMake = res.CameraMake
		}
		if miss.CameraModel == "" {
			miss.CameraModel = res.CameraModel
		}
	}
	return miss
}

// runExtractor recovers a panicking extractor into a Failed result so the
// chain can continue.
func (o *Orchestrator) runExtractor(ex Extractor, data []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(fmt.Errorf("extractor %s panicked: %v", ex.Name(), r))
		}
	}()
	return ex.Extract(data)
}
