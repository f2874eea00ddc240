package geo

// MockExtractor always reports the configured coordinate pair. It stands in
// for real parsing in tests and demo deployments and is selected through
// configuration, never compiled-in flags.
type MockExtractor struct {
	Latitude  float64
	Longitude float64
}

func NewMockExtractor(lat, lng float64) *MockExtractor {
	return &MockExtractor{Latitude: lat, Longitude: lng}
}

func (e *MockExtractor) Name() string { return "mock" }

func (e *MockExtractor) Extract(_ []byte) Result {
	return Found(Location{Latitude: e.Latitude, Longitude: e.Longitude})
}
