package handlers

// Swagger-only shapes; runtime responses use the generic response envelope.

type RespOK struct {
	Code    int    `json:"code" example:"0"`
	Message string `json:"message" example:"ok"`
	Data    any    `json:"data"`
}

type ResolveRequestDoc struct {
	QueryString string `json:"query_string" example:"invoice_id=ht_inv_123&status=success&type=trainer_booking"`
	Platform    string `json:"platform" example:"web"`
}
