package dto

import "github.com/hongminglow/sales-dashboard-be/internal/models"

type TableResponse struct {
	Data  []models.SaleRecord `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Pages int                 `json:"pages"`
}

type SyncResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
