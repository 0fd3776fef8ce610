package analysis

// Location anchors the venue search. Taken from the requesting participant's
// client; the pair's distance caps bound the radius around it.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AnalyzeDTO is the request body for starting an analysis run
type AnalyzeDTO struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

func (d *AnalyzeDTO) ToLocation() Location {
	return Location{Latitude: d.Latitude, Longitude: d.Longitude}
}
