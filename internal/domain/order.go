package domain

import "strings"

// OrderNumber — идентификатор заказа, присвоенный внешним магазином.
// Уникален, монотонно растёт, никогда не переиспользуется.
type OrderNumber int32

// displayNameFieldTitle — ожидаемый заголовок custom field, в котором
// покупатель указывает отображаемое имя.
const displayNameFieldTitle = "twitch username"

// CustomField — произвольное поле заказа (title/value), заполняется магазином.
type CustomField struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// CustomTextField — текстовое поле позиции заказа.
type CustomTextField struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// LineItemOption — выбранная опция позиции, например {"option": "Promo Card", "selection": "Yes"}.
type LineItemOption struct {
	Option    string `json:"option"`
	Selection string `json:"selection"`
}

// MediaItem — изображение товара в CDN магазина.
type MediaItem struct {
	AltText *string `json:"altText"`
	ID      string  `json:"id"`
	Src     string  `json:"src"`
}

// LineItem — одна позиция заказа.
type LineItem struct {
	Index            *uint64           `json:"index"`
	Quantity         uint64            `json:"quantity"`
	Name             string            `json:"name"`
	Options          []LineItemOption  `json:"options"`
	CustomTextFields []CustomTextField `json:"customTextFields"`
	MediaItem        MediaItem         `json:"mediaItem"`
	Notes            *string           `json:"notes"`
}

// OrderPayload — валидированный документ заказа из webhook магазина.
// Для ядра он непрозрачен: наружу торчат только номер заказа и правило
// извлечения отображаемого имени. Имена JSON-полей повторяют webhook (camelCase).
type OrderPayload struct {
	BuyerNote   *string      `json:"buyerNote"`
	OrderNumber OrderNumber  `json:"number"`
	LineItems   []LineItem   `json:"lineItems"`
	CustomField *CustomField `json:"customField"`
}

// DisplayName извлекает отображаемое имя из custom field заказа.
// Поле должно называться "twitch username" (без учёта регистра); любое
// другое название или отсутствие поля — не ошибка, имя просто отсутствует.
func (p *OrderPayload) DisplayName() (string, bool) {
	if p.CustomField == nil {
		return "", false
	}
	if !strings.EqualFold(strings.TrimSpace(p.CustomField.Title), displayNameFieldTitle) {
		return "", false
	}
	return p.CustomField.Value, true
}

// Validate проверяет минимальные требования к документу заказа.
func (p *OrderPayload) Validate() []error {
	var errs []error

	if p.OrderNumber <= 0 {
		errs = append(errs, ErrOrderNumberInvalid)
	}
	if len(p.LineItems) == 0 {
		errs = append(errs, ErrLineItemsRequired)
	}
	for _, item := range p.LineItems {
		if item.Quantity == 0 {
			errs = append(errs, ErrLineItemQtyInvalid)
		}
		if item.Name == "" {
			errs = append(errs, ErrLineItemNameRequired)
		}
	}

	return errs
}

// OrderRecord — одна запись очереди: номер заказа, отображаемое имя
// (если удалось извлечь) и сам документ. После создания меняется только
// DisplayName.
type OrderRecord struct {
	OrderNumber OrderNumber  `json:"order_id"`
	DisplayName *string      `json:"twitch_username"`
	Payload     OrderPayload `json:"order"`
}

// NewOrderRecord строит запись очереди из валидированного документа.
func NewOrderRecord(payload OrderPayload) OrderRecord {
	rec := OrderRecord{
		OrderNumber: payload.OrderNumber,
		Payload:     payload,
	}
	if name, ok := payload.DisplayName(); ok {
		rec.DisplayName = &name
	}
	return rec
}
