package worker

import (
	"fmt"

	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/models"
)

// formatQueries maps every (format, quality) pair to the selection query
// passed to the extraction engine. The mapping is total over the closed
// enumerations; anything else is a configuration error caught before any
// engine call.
var formatQueries = map[models.MediaFormat]map[models.Quality]string{
	models.FormatMP4: {
		models.QualityHigh:   "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		models.QualityMedium: "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best",
		models.QualityLow:    "worst[ext=mp4]/worst",
	},
	models.FormatWebM: {
		models.QualityHigh:   "bestvideo[ext=webm]+bestaudio[ext=webm]/best[ext=webm]/best",
		models.QualityMedium: "bestvideo[height<=720][ext=webm]+bestaudio[ext=webm]/best[height<=720][ext=webm]/best",
		models.QualityLow:    "worst[ext=webm]/worst",
	},
	models.FormatM4A: {
		models.QualityHigh:   "bestaudio[ext=m4a]/best[ext=m4a]/best",
		models.QualityMedium: "bestaudio[abr<=128][ext=m4a]/best[abr<=128][ext=m4a]/best",
		models.QualityLow:    "worstaudio[ext=m4a]/worst",
	},
	models.FormatMP3: {
		models.QualityHigh:   "bestaudio/best",
		models.QualityMedium: "bestaudio[abr<=128]/best",
		models.QualityLow:    "worstaudio/worst",
	},
}

// ResolveQuery returns the stream selection query for the requested output
// format and quality tier.
func ResolveQuery(format models.MediaFormat, quality models.Quality) (string, error) {
	tiers, ok := formatQueries[format]
	if !ok {
		return "", &downloads.ConfigurationError{Detail: fmt.Sprintf("unsupported format %q", format)}
	}
	query, ok := tiers[quality]
	if !ok {
		return "", &downloads.ConfigurationError{Detail: fmt.Sprintf("unsupported quality %q for format %q", quality, format)}
	}
	return query, nil
}
