package v1

type CreatePlaylistRequest struct {
	Title    string `json:"title" binding:"required"`
	EmbedURL string `json:"embed_url" binding:"required"`
}
