package models

// DownloadInput is the POST /download request body.
type DownloadInput struct {
	URL        string      `json:"url" validate:"required,url"`
	Format     MediaFormat `json:"format" validate:"required,oneof=mp4 webm m4a mp3"`
	Quality    Quality     `json:"quality" validate:"omitempty,oneof=high medium low"`
	IsPlaylist bool        `json:"is_playlist"`
}

// Normalize applies request defaults.
func (in *DownloadInput) Normalize() {
	if in.Quality == "" {
		in.Quality = QualityHigh
	}
}

// StatusResponse is the GET /status/:id response body.
type StatusResponse struct {
	State  JobState `json:"state"`
	Status string   `json:"status"`
}
