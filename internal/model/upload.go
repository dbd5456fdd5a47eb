package model

// UploadedImage describes an image accepted by the upload endpoint.
type UploadedImage struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	Format       string `json:"format"`
	Mode         string `json:"mode"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"size"`
}

// Extraction is the result of running OCR on an uploaded image.
type Extraction struct {
	Text     string        `json:"extracted_text"`
	Filename string        `json:"filename"`
	Image    UploadedImage `json:"-"`
}
