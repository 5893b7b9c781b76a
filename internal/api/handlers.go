package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/server"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Image    string `json:"image,omitempty"`
}

type CreateThreadRequest struct {
	UserId string `json:"user_id"`
}

type SendDirectMessageRequest struct {
	ThreadId   string `json:"thread_id"`
	ReceiverId string `json:"receiver_id"`
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
}

type MarkDirectReadRequest struct {
	ThreadId   string   `json:"thread_id"`
	MessageIds []string `json:"message_ids,omitempty"`
}

type CreateGroupRequest struct {
	Name       string `json:"name"`
	MaxMembers int    `json:"max_members,omitempty"`
}

type GroupMemberRequest struct {
	GroupId string `json:"group_id"`
	UserId  string `json:"user_id,omitempty"`
}

type JoinGroupRequest struct {
	GroupId      string `json:"group_id"`
	InvitationId string `json:"invitation_id,omitempty"`
}

type InviteRequest struct {
	GroupId    string `json:"group_id"`
	ReceiverId string `json:"receiver_id"`
}

type RejectInvitationRequest struct {
	InvitationId string `json:"invitation_id"`
}

type SendGroupMessageRequest struct {
	GroupId string `json:"group_id"`
	Text    string `json:"text,omitempty"`
	Image   string `json:"image,omitempty"`
}

type MarkGroupReadRequest struct {
	GroupId    string   `json:"group_id"`
	MessageIds []string `json:"message_ids,omitempty"`
}

type PushTokenRequest struct {
	Token string `json:"token"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Println(errResp.Error())
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *ChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	newUser, err := s.db.CreateAccount(r.Context(), database.CreateAccountParams{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwdHash,
		Image:        req.Image,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, newUser)
}

func (s *ChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if lr.Email == "" || lr.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	user, err := s.db.GetAccountByEmail(r.Context(), lr.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, NewNotFoundError())
		} else {
			s.writeError(w, NewInternalServerError(err))
		}
		return
	}

	if !verifyPassword(user.Password, lr.Password) {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	token, err := s.createJwtForSession(user.Id, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, user)
}

func (s *ChatApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	user, err := s.db.GetAccountById(r.Context(), userId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *ChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatApp) createThread(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req CreateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == "" || req.UserId == userId {
		s.writeError(w, NewBadRequestError())
		return
	}

	thread, err := s.db.CreateThread(r.Context(), userId, req.UserId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, thread)
}

// deleteThread ends a friendship: the thread and its messages are deleted,
// uploaded images are purged and the other participant is told over their
// live connection.
func (s *ChatApp) deleteThread(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	threadId := r.URL.Query().Get("id")
	if threadId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	thread, err := s.db.GetThread(r.Context(), threadId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	if thread.UserA != userId && thread.UserB != userId {
		s.writeError(w, NewForbiddenError())
		return
	}

	if err := s.db.DeleteThreadWithMessages(r.Context(), threadId); err != nil {
		s.writeError(w, domainError(err))
		return
	}

	if s.purger != nil {
		if err := s.purger.PurgeThread(r.Context(), threadId); err != nil {
			s.log.Printf("purge media for thread %q: %v", threadId, err)
		}
	}

	otherId := thread.UserA
	if userId == thread.UserA {
		otherId = thread.UserB
	}
	s.cs.NotifyUnfriend(threadId, userId, otherId)

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) sendDirectMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req SendDirectMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ThreadId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	msg, err := s.cs.SendDirect(r.Context(), req.ThreadId, userId, req.ReceiverId, req.Text, req.Image)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *ChatApp) getDirectMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	threadId := r.URL.Query().Get("thread_id")
	if threadId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	thread, err := s.db.GetThread(r.Context(), threadId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}
	if thread.UserA != userId && thread.UserB != userId {
		s.writeError(w, NewForbiddenError())
		return
	}

	msgs, err := s.db.GetDirectMessages(r.Context(), threadId, limit)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, msgs)
}

func (s *ChatApp) markDirectRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req MarkDirectReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ThreadId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	affected, err := s.cs.MarkDirectRead(r.Context(), req.ThreadId, userId, req.MessageIds)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"message_ids": affected})
}

func (s *ChatApp) createGroup(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	grp, err := s.groups.Create(r.Context(), req.Name, userId, req.MaxMembers)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, grp)
}

func (s *ChatApp) deleteGroup(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	groupId := r.URL.Query().Get("id")
	if groupId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.groups.Delete(r.Context(), groupId, userId); err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) joinGroup(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	grp, err := s.groups.Join(r.Context(), req.GroupId, userId, req.InvitationId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, grp)
}

func (s *ChatApp) leaveGroup(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	grp, err := s.groups.Leave(r.Context(), req.GroupId, userId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, grp)
}

func (s *ChatApp) kickFromGroup(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupId == "" || req.UserId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	grp, err := s.groups.Kick(r.Context(), req.GroupId, userId, req.UserId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, grp)
}

func (s *ChatApp) setGroupAdmin(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupId == "" || req.UserId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	grp, err := s.groups.SetAdmin(r.Context(), req.GroupId, userId, req.UserId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, grp)
}

func (s *ChatApp) inviteToGroup(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupId == "" || req.ReceiverId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	inv, err := s.groups.Invite(r.Context(), req.GroupId, userId, req.ReceiverId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, inv)
}

func (s *ChatApp) rejectInvitation(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req RejectInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvitationId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.groups.Reject(r.Context(), req.InvitationId, userId); err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) sendGroupMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req SendGroupMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	msg, err := s.cs.SendGroup(r.Context(), req.GroupId, userId, req.Text, req.Image)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *ChatApp) getGroupMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	groupId := r.URL.Query().Get("group_id")
	if groupId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	grp, err := s.db.GetGroup(r.Context(), groupId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}
	if !slices.Contains(grp.Members, userId) {
		s.writeError(w, NewForbiddenError())
		return
	}

	msgs, err := s.db.GetGroupMessages(r.Context(), groupId, limit)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, msgs)
}

func (s *ChatApp) markGroupRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req MarkGroupReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupId == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	affected, err := s.cs.MarkGroupRead(r.Context(), req.GroupId, userId, req.MessageIds)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"message_ids": affected})
}

func (s *ChatApp) setPushToken(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.db.SetPushToken(r.Context(), userId, req.Token); err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) clearPushToken(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	if err := s.db.ClearPushToken(r.Context(), userId); err != nil {
		s.writeError(w, domainError(err))
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	user, err := s.db.GetAccountById(r.Context(), userId)
	if err != nil {
		s.writeError(w, domainError(err))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(user, conn, s.cs, s.log)

	s.cs.Register(client)
	go client.Write()
	go client.Read()
}

func parseLimit(r *http.Request) (int64, *ApiError) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, nil
	}

	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit < 0 {
		return 0, NewBadRequestError()
	}

	return limit, nil
}
