package history

// Movement is one position report destined for the history log.
type Movement struct {
	UserID int64
	RoomID string
	Lat    float64
	Lng    float64
	TS     int64
}

// Recorder accepts movements on a best-effort basis. Record must never block
// the caller; implementations drop on backpressure and swallow store errors.
type Recorder interface {
	Record(m Movement)
}

// NopRecorder discards every movement. Used when history is disabled and in
// tests that do not care about persistence.
type NopRecorder struct{}

func (NopRecorder) Record(Movement) {}
