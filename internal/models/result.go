package models

// AskResponse is the grounded answer together with the passages it was built from.
type AskResponse struct {
	Answer  string     `json:"answer"`
	Sources []Document `json:"sources"`
}

// UploadResponse is returned after an upload has been indexed.
type UploadResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
