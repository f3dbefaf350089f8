package handler

import "time"

// --- Requests ---

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	HWID     string `json:"hwid" validate:"required"`
}

type registerRequest struct {
	Username   string `json:"username" validate:"required,max=64"`
	Password   string `json:"password" validate:"required"`
	InviteCode string `json:"invite_code" validate:"required"`
	ExternalID string `json:"external_id" validate:"required"`
}

type createInviteRequest struct {
	Days int `json:"days" validate:"gte=0"`
}

type createInviteBatchRequest struct {
	Count int `json:"count" validate:"gt=0,lte=500"`
	Days  int `json:"days" validate:"gte=0"`
}

// --- Responses ---

type successResponse struct {
	Success bool `json:"success"`
}

type userResponse struct {
	UID          int64     `json:"uid"`
	Username     string    `json:"username"`
	ExternalID   string    `json:"external_id"`
	InviteCode   string    `json:"invite_code"`
	Status       string    `json:"status"`
	HWID         string    `json:"hwid"`
	RegisterDate time.Time `json:"register_date"`
	LastLogin    string    `json:"last_login"`
}

type registerResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

type userListResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
}

type inviteResponse struct {
	Code           string    `json:"code"`
	ExpirationDate time.Time `json:"expiration_date"`
	Used           bool      `json:"used"`
	Status         string    `json:"status"`
}

type inviteListResponse struct {
	Invites []inviteResponse `json:"invites"`
	Total   int              `json:"total"`
}
