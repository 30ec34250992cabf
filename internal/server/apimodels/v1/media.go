package v1

type PatchMediaRequest struct {
	Title string `json:"title"`
}
