package dto

type DecisionRequest struct {
	Gate     string `json:"gate" binding:"required"`
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
}
