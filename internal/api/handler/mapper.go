package handler

import (
	"time"

	"github.com/safedev/accessgate/internal/core/domain"
)

const (
	hwidNotSet  = "not set"
	neverLogged = "never"
)

func toUserResponse(u *domain.User) userResponse {
	resp := userResponse{
		UID:          u.UID,
		Username:     u.Username,
		ExternalID:   u.ExternalID,
		InviteCode:   u.InviteCode,
		Status:       string(u.Status),
		HWID:         hwidNotSet,
		RegisterDate: u.RegisterDate.UTC(),
		LastLogin:    neverLogged,
	}
	if u.HWID != nil {
		resp.HWID = *u.HWID
	}
	if u.LastLogin != nil {
		resp.LastLogin = u.LastLogin.UTC().Format(time.RFC3339)
	}
	return resp
}

func toUserListResponse(users []*domain.User) userListResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return userListResponse{Users: out, Total: len(out)}
}

func toInviteResponse(inv *domain.Invite, now time.Time) inviteResponse {
	return inviteResponse{
		Code:           inv.Code,
		ExpirationDate: inv.ExpirationDate.UTC(),
		Used:           inv.Used,
		Status:         inv.Status(now),
	}
}

func toInviteListResponse(invites []*domain.Invite, now time.Time) inviteListResponse {
	out := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, toInviteResponse(inv, now))
	}
	return inviteListResponse{Invites: out, Total: len(out)}
}
