package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"canvas-drive-sync/internal/domain"
)

// Keep header order EXACT; downstream spreadsheets address columns by position.
var transferHeader = []string{
	"COURSE_ID",
	"MODULE",
	"TITLE",
	"CANVAS_FILE_ID",
	"FILENAME",
	"CONTENT_TYPE",
	"SIZE_BYTES",
	"STATUS",
	"DESTINATION_ID",
	"DESTINATION_URL",
	"ERROR",
}

// WriteTransferCSV writes one row per result, in the given order.
func WriteTransferCSV(w io.Writer, results []domain.TransferResult) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(transferHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(toTransferRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toTransferRow(r domain.TransferResult) []string {
	size := ""
	if r.Size > 0 {
		size = strconv.FormatInt(r.Size, 10)
	}

	return []string{
		strconv.FormatInt(r.CourseID, 10),     // COURSE_ID
		clean(r.ModuleName),                   // MODULE
		clean(r.Title),                        // TITLE
		strconv.FormatInt(r.CanvasFileID, 10), // CANVAS_FILE_ID
		clean(r.Filename),                     // FILENAME
		r.ContentType,                         // CONTENT_TYPE
		size,                                  // SIZE_BYTES
		r.Status,                              // STATUS
		r.DestinationID,                       // DESTINATION_ID
		r.DestinationURL,                      // DESTINATION_URL
		clean(r.Error),                        // ERROR
	}
}

// clean keeps every record on one line.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
