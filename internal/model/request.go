package model

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	CompanyName string `json:"company_name" validate:"required"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Address     string `json:"address"`
}

type CreateAdminRequest struct {
	Username    string          `json:"username" validate:"required,min=3,max=64"`
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=8"`
	DisplayName string          `json:"display_name"`
	Permissions FlatPermissions `json:"permissions"`
}

type UpdateAdminRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password" validate:"omitempty,min=8"`
}

type CreateAccountRequest struct {
	Username    string             `json:"username" validate:"required,min=3,max=64"`
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required,min=8"`
	CompanyName string             `json:"company_name" validate:"required"`
	ContactName string             `json:"contact_name"`
	Phone       string             `json:"phone" validate:"omitempty,max=32"`
	Address     string             `json:"address"`
	Status      string             `json:"status" validate:"omitempty,oneof=active inactive"`
	Permissions PermissionsPayload `json:"permissions"`
}

type UpdateAccountRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	CompanyName string `json:"company_name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Address     string `json:"address"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

type UpdatePermissionsRequest struct {
	Permissions PermissionsPayload `json:"permissions"`
}

type AccountQuery struct {
	Search string
	Status string
	Page   int
	Limit  int
}

type CreateLoadRequest struct {
	CustomerID   string  `json:"customer_id" validate:"omitempty,uuid"`
	Origin       string  `json:"origin" validate:"required"`
	Destination  string  `json:"destination" validate:"required"`
	PickupDate   string  `json:"pickup_date" validate:"omitempty,datetime=2006-01-02"`
	DeliveryDate string  `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
	WeightKg     float64 `json:"weight_kg" validate:"gte=0"`
	Rate         float64 `json:"rate" validate:"gte=0"`
	Notes        string  `json:"notes"`
}

type UpdateLoadRequest struct {
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	PickupDate   string   `json:"pickup_date" validate:"omitempty,datetime=2006-01-02"`
	DeliveryDate string   `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
	WeightKg     *float64 `json:"weight_kg" validate:"omitempty,gte=0"`
	Rate         *float64 `json:"rate" validate:"omitempty,gte=0"`
	Notes        *string  `json:"notes"`
}

type AssignLoadRequest struct {
	VendorID string `json:"vendor_id" validate:"required,uuid"`
}

type LoadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending assigned in_transit delivered cancelled"`
}

type CreateTransactionRequest struct {
	OwnerKind string  `json:"owner_kind" validate:"required,oneof=vendor customer"`
	OwnerID   string  `json:"owner_id" validate:"required,uuid"`
	Direction string  `json:"direction" validate:"required,oneof=credit debit"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reference string  `json:"reference" validate:"max=128"`
	Note      string  `json:"note"`
}

type ReviewTransactionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Note     string `json:"note"`
}

type CreateNotificationRequest struct {
	RecipientRole string `json:"recipient_role" validate:"required,oneof=admin vendor customer"`
	RecipientID   string `json:"recipient_id" validate:"required,uuid"`
	Title         string `json:"title" validate:"required,max=200"`
	Body          string `json:"body"`
}
