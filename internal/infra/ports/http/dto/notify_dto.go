package dto

type NotifyRequest struct {
	Identity string `json:"identity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Link     string `json:"link"`
}

type NotifyResponse struct {
	Delivered int `json:"delivered"`
}
