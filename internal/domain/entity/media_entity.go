package entity

// StagedFile is an upload already written to local disk by the transport layer.
type StagedFile struct {
	Path        string
	Filename    string
	ContentType string
}

// UploadedMedia is where the media backend stored a file. Key is backend specific
// and is what Delete expects.
type UploadedMedia struct {
	URL string
	Key string
}
