package dto

// ClickRequest - входящий запрос PREPARE/COMPLETE. Все поля строками:
// подпись считается по значениям в том виде, в каком их прислал Click.
type ClickRequest struct {
	ClickTransID      string `form:"click_trans_id" json:"click_trans_id" validate:"required,numeric"`
	ServiceID         string `form:"service_id" json:"service_id" validate:"required"`
	ClickPaydocID     string `form:"click_paydoc_id" json:"click_paydoc_id"`
	MerchantTransID   string `form:"merchant_trans_id" json:"merchant_trans_id" validate:"required,tx_param"`
	MerchantPrepareID string `form:"merchant_prepare_id" json:"merchant_prepare_id" validate:"omitempty,numeric"`
	Amount            string `form:"amount" json:"amount" validate:"required,decimal_amount"`
	Action            string `form:"action" json:"action" validate:"required,click_action"`
	Error             string `form:"error" json:"error" validate:"omitempty,numeric"`
	ErrorNote         string `form:"error_note" json:"error_note"`
	SignTime          string `form:"sign_time" json:"sign_time" validate:"required"`
	SignString        string `form:"sign_string" json:"sign_string" validate:"required"`
}

// ClickResponse - ответ на PREPARE (merchant_prepare_id) или COMPLETE (merchant_confirm_id)
type ClickResponse struct {
	ClickTransID      int64  `json:"click_trans_id"`
	MerchantTransID   string `json:"merchant_trans_id"`
	MerchantPrepareID *uint  `json:"merchant_prepare_id,omitempty"`
	MerchantConfirmID *uint  `json:"merchant_confirm_id,omitempty"`
	Error             int    `json:"error"`
	ErrorNote         string `json:"error_note"`
	SignTime          string `json:"sign_time,omitempty"`
	SignString        string `json:"sign_string,omitempty"`
}
