package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sportbuddy/chat-server/internal/types"
)

const (
	accountsColl       = "accounts"
	threadsColl        = "threads"
	directMessagesColl = "direct_messages"
	groupsColl         = "groups"
	groupMessagesColl  = "group_messages"
	invitationsColl    = "invitations"
	notificationsColl  = "notifications"
)

const connectTimeout = 10 * time.Second

type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoRepository(uri, dbName string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoRepository{client: client, db: client.Database(dbName)}, nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// document types, kept private to the mongo layer

type accountDoc struct {
	Id           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Image        string             `bson:"image,omitempty"`
	FCMToken     string             `bson:"fcm_token,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

type threadDoc struct {
	Id            primitive.ObjectID `bson:"_id,omitempty"`
	UserA         primitive.ObjectID `bson:"user_a"`
	UserB         primitive.ObjectID `bson:"user_b"`
	LastMessageId primitive.ObjectID `bson:"last_message_id,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
}

type directMessageDoc struct {
	Id         primitive.ObjectID `bson:"_id,omitempty"`
	ThreadId   primitive.ObjectID `bson:"thread_id"`
	SenderId   primitive.ObjectID `bson:"sender_id"`
	ReceiverId primitive.ObjectID `bson:"receiver_id"`
	Text       string             `bson:"text,omitempty"`
	Image      string             `bson:"image,omitempty"`
	IsRead     bool               `bson:"is_read"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type groupDoc struct {
	Id            primitive.ObjectID   `bson:"_id,omitempty"`
	Name          string               `bson:"name"`
	AdminId       primitive.ObjectID   `bson:"admin_id"`
	Members       []primitive.ObjectID `bson:"members"`
	JoinedAt      map[string]time.Time `bson:"joined_at"`
	MaxMembers    int                  `bson:"max_members"`
	LastMessageId primitive.ObjectID   `bson:"last_message_id,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
}

type groupMessageDoc struct {
	Id        primitive.ObjectID   `bson:"_id,omitempty"`
	GroupId   primitive.ObjectID   `bson:"group_id"`
	SenderId  primitive.ObjectID   `bson:"sender_id"`
	Text      string               `bson:"text,omitempty"`
	Image     string               `bson:"image,omitempty"`
	ReadBy    []primitive.ObjectID `bson:"read_by"`
	CreatedAt time.Time            `bson:"created_at"`
}

type invitationDoc struct {
	Id         primitive.ObjectID `bson:"_id,omitempty"`
	GroupId    primitive.ObjectID `bson:"group_id"`
	SenderId   primitive.ObjectID `bson:"sender_id"`
	ReceiverId primitive.ObjectID `bson:"receiver_id"`
	Status     string             `bson:"status"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type notificationDoc struct {
	Id         primitive.ObjectID `bson:"_id,omitempty"`
	Type       string             `bson:"type"`
	SenderId   primitive.ObjectID `bson:"sender_id"`
	ReceiverId primitive.ObjectID `bson:"receiver_id"`
	RelatedId  primitive.ObjectID `bson:"related_id,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func parseId(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return oid, nil
}

func parseIds(ids []string) ([]primitive.ObjectID, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := parseId(id)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

func translateErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (d accountDoc) toUser() types.User {
	return types.User{
		Id:        d.Id.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Password:  d.PasswordHash,
		Image:     d.Image,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d threadDoc) toThread() types.Thread {
	t := types.Thread{
		Id:        d.Id.Hex(),
		UserA:     d.UserA.Hex(),
		UserB:     d.UserB.Hex(),
		CreatedAt: d.CreatedAt,
	}
	if !d.LastMessageId.IsZero() {
		t.LastMessageId = d.LastMessageId.Hex()
	}
	return t
}

func (d directMessageDoc) toMessage() types.DirectMessage {
	return types.DirectMessage{
		Id:         d.Id.Hex(),
		ThreadId:   d.ThreadId.Hex(),
		SenderId:   d.SenderId.Hex(),
		ReceiverId: d.ReceiverId.Hex(),
		Text:       d.Text,
		Image:      d.Image,
		IsRead:     d.IsRead,
		CreatedAt:  d.CreatedAt,
	}
}

func (d groupDoc) toGroup() types.Group {
	g := types.Group{
		Id:         d.Id.Hex(),
		Name:       d.Name,
		AdminId:    d.AdminId.Hex(),
		Members:    make([]string, len(d.Members)),
		JoinedAt:   d.JoinedAt,
		MaxMembers: d.MaxMembers,
		CreatedAt:  d.CreatedAt,
	}
	for i, m := range d.Members {
		g.Members[i] = m.Hex()
	}
	if g.JoinedAt == nil {
		g.JoinedAt = make(map[string]time.Time)
	}
	if !d.LastMessageId.IsZero() {
		g.LastMessageId = d.LastMessageId.Hex()
	}
	return g
}

func (d groupMessageDoc) toMessage() types.GroupMessage {
	m := types.GroupMessage{
		Id:        d.Id.Hex(),
		GroupId:   d.GroupId.Hex(),
		SenderId:  d.SenderId.Hex(),
		Text:      d.Text,
		Image:     d.Image,
		ReadBy:    make([]string, len(d.ReadBy)),
		CreatedAt: d.CreatedAt,
	}
	for i, u := range d.ReadBy {
		m.ReadBy[i] = u.Hex()
	}
	return m
}

func (d invitationDoc) toInvitation() types.Invitation {
	return types.Invitation{
		Id:         d.Id.Hex(),
		GroupId:    d.GroupId.Hex(),
		SenderId:   d.SenderId.Hex(),
		ReceiverId: d.ReceiverId.Hex(),
		Status:     d.Status,
		CreatedAt:  d.CreatedAt,
	}
}

func (r *MongoRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (types.User, error) {
	now := time.Now().UTC()
	doc := accountDoc{
		Id:           primitive.NewObjectID(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Image:        params.Image,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.db.Collection(accountsColl).InsertOne(ctx, doc); err != nil {
		return types.User{}, err
	}

	return doc.toUser(), nil
}

func (r *MongoRepository) GetAccountById(ctx context.Context, userId string) (types.User, error) {
	oid, err := parseId(userId)
	if err != nil {
		return types.User{}, err
	}

	var doc accountDoc
	err = r.db.Collection(accountsColl).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return types.User{}, translateErr(err)
	}

	return doc.toUser(), nil
}

func (r *MongoRepository) GetAccountByEmail(ctx context.Context, email string) (types.User, error) {
	var doc accountDoc
	err := r.db.Collection(accountsColl).FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		return types.User{}, translateErr(err)
	}

	return doc.toUser(), nil
}

func (r *MongoRepository) GetPushToken(ctx context.Context, userId string) (string, error) {
	oid, err := parseId(userId)
	if err != nil {
		return "", err
	}

	var doc accountDoc
	err = r.db.Collection(accountsColl).FindOne(
		ctx,
		bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"fcm_token": 1}),
	).Decode(&doc)
	if err != nil {
		return "", translateErr(err)
	}

	return doc.FCMToken, nil
}

func (r *MongoRepository) SetPushToken(ctx context.Context, userId, token string) error {
	oid, err := parseId(userId)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(accountsColl).UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"fcm_token": token, "updated_at": time.Now().UTC()}},
	)
	return err
}

func (r *MongoRepository) ClearPushToken(ctx context.Context, userId string) error {
	oid, err := parseId(userId)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(accountsColl).UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$unset": bson.M{"fcm_token": ""}},
	)
	return err
}

func (r *MongoRepository) GetThread(ctx context.Context, threadId string) (types.Thread, error) {
	oid, err := parseId(threadId)
	if err != nil {
		return types.Thread{}, err
	}

	var doc threadDoc
	err = r.db.Collection(threadsColl).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return types.Thread{}, translateErr(err)
	}

	return doc.toThread(), nil
}

func (r *MongoRepository) CreateThread(ctx context.Context, userA, userB string) (types.Thread, error) {
	aid, err := parseId(userA)
	if err != nil {
		return types.Thread{}, err
	}
	bid, err := parseId(userB)
	if err != nil {
		return types.Thread{}, err
	}

	doc := threadDoc{
		Id:        primitive.NewObjectID(),
		UserA:     aid,
		UserB:     bid,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.db.Collection(threadsColl).InsertOne(ctx, doc); err != nil {
		return types.Thread{}, err
	}

	return doc.toThread(), nil
}

// DeleteThreadWithMessages removes the thread record and all messages owned
// by it. The message delete runs first so a failure cannot orphan messages
// behind a missing thread.
func (r *MongoRepository) DeleteThreadWithMessages(ctx context.Context, threadId string) error {
	oid, err := parseId(threadId)
	if err != nil {
		return err
	}

	if _, err := r.db.Collection(directMessagesColl).DeleteMany(ctx, bson.M{"thread_id": oid}); err != nil {
		return fmt.Errorf("delete thread messages: %w", err)
	}

	res, err := r.db.Collection(threadsColl).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *MongoRepository) CreateDirectMessage(ctx context.Context, msg types.DirectMessage) (types.DirectMessage, error) {
	threadId, err := parseId(msg.ThreadId)
	if err != nil {
		return types.DirectMessage{}, err
	}
	senderId, err := parseId(msg.SenderId)
	if err != nil {
		return types.DirectMessage{}, err
	}
	receiverId, err := parseId(msg.ReceiverId)
	if err != nil {
		return types.DirectMessage{}, err
	}

	doc := directMessageDoc{
		Id:         primitive.NewObjectID(),
		ThreadId:   threadId,
		SenderId:   senderId,
		ReceiverId: receiverId,
		Text:       msg.Text,
		Image:      msg.Image,
		CreatedAt:  time.Now().UTC(),
	}

	if _, err := r.db.Collection(directMessagesColl).InsertOne(ctx, doc); err != nil {
		return types.DirectMessage{}, err
	}

	return doc.toMessage(), nil
}

func (r *MongoRepository) GetDirectMessages(ctx context.Context, threadId string, limit int64) ([]types.DirectMessage, error) {
	oid, err := parseId(threadId)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.M{"created_at": 1})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.db.Collection(directMessagesColl).Find(ctx, bson.M{"thread_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []types.DirectMessage
	for cur.Next(ctx) {
		var doc directMessageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		msgs = append(msgs, doc.toMessage())
	}

	return msgs, cur.Err()
}

// MarkDirectMessagesRead flips is_read for the given ids and returns the ids
// that actually transitioned. Already-read ids are skipped, which keeps the
// operation idempotent.
func (r *MongoRepository) MarkDirectMessagesRead(ctx context.Context, threadId string, messageIds []string) ([]string, error) {
	threadOid, err := parseId(threadId)
	if err != nil {
		return nil, err
	}
	oids, err := parseIds(messageIds)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":       bson.M{"$in": oids},
		"thread_id": threadOid,
		"is_read":   false,
	}

	cur, err := r.db.Collection(directMessagesColl).Find(
		ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var affected []string
	var affectedOids []primitive.ObjectID
	for cur.Next(ctx) {
		var doc directMessageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		affected = append(affected, doc.Id.Hex())
		affectedOids = append(affectedOids, doc.Id)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	if len(affectedOids) == 0 {
		return nil, nil
	}

	_, err = r.db.Collection(directMessagesColl).UpdateMany(
		ctx,
		bson.M{"_id": bson.M{"$in": affectedOids}},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return nil, err
	}

	return affected, nil
}

func (r *MongoRepository) UpdateThreadLastMessage(ctx context.Context, threadId, messageId string) error {
	threadOid, err := parseId(threadId)
	if err != nil {
		return err
	}
	msgOid, err := parseId(messageId)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(threadsColl).UpdateOne(
		ctx,
		bson.M{"_id": threadOid},
		bson.M{"$set": bson.M{"last_message_id": msgOid}},
	)
	return err
}

func (r *MongoRepository) GetGroup(ctx context.Context, groupId string) (types.Group, error) {
	oid, err := parseId(groupId)
	if err != nil {
		return types.Group{}, err
	}

	var doc groupDoc
	err = r.db.Collection(groupsColl).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return types.Group{}, translateErr(err)
	}

	return doc.toGroup(), nil
}

func (r *MongoRepository) CreateGroup(ctx context.Context, group types.Group) (types.Group, error) {
	adminId, err := parseId(group.AdminId)
	if err != nil {
		return types.Group{}, err
	}
	members, err := parseIds(group.Members)
	if err != nil {
		return types.Group{}, err
	}

	doc := groupDoc{
		Id:         primitive.NewObjectID(),
		Name:       group.Name,
		AdminId:    adminId,
		Members:    members,
		JoinedAt:   group.JoinedAt,
		MaxMembers: group.MaxMembers,
		CreatedAt:  time.Now().UTC(),
	}
	if doc.JoinedAt == nil {
		doc.JoinedAt = map[string]time.Time{group.AdminId: doc.CreatedAt}
	}

	if _, err := r.db.Collection(groupsColl).InsertOne(ctx, doc); err != nil {
		return types.Group{}, err
	}

	return doc.toGroup(), nil
}

// UpdateGroupMembership writes the roster fields in a single document update
// so a membership transition is either fully applied or not at all.
func (r *MongoRepository) UpdateGroupMembership(ctx context.Context, group types.Group) error {
	oid, err := parseId(group.Id)
	if err != nil {
		return err
	}
	adminId, err := parseId(group.AdminId)
	if err != nil {
		return err
	}
	members, err := parseIds(group.Members)
	if err != nil {
		return err
	}

	res, err := r.db.Collection(groupsColl).UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"admin_id":  adminId,
			"members":   members,
			"joined_at": group.JoinedAt,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *MongoRepository) DeleteGroup(ctx context.Context, groupId string) error {
	oid, err := parseId(groupId)
	if err != nil {
		return err
	}

	res, err := r.db.Collection(groupsColl).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *MongoRepository) UpdateGroupLastMessage(ctx context.Context, groupId, messageId string) error {
	groupOid, err := parseId(groupId)
	if err != nil {
		return err
	}
	msgOid, err := parseId(messageId)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(groupsColl).UpdateOne(
		ctx,
		bson.M{"_id": groupOid},
		bson.M{"$set": bson.M{"last_message_id": msgOid}},
	)
	return err
}

func (r *MongoRepository) CreateGroupMessage(ctx context.Context, msg types.GroupMessage) (types.GroupMessage, error) {
	groupId, err := parseId(msg.GroupId)
	if err != nil {
		return types.GroupMessage{}, err
	}
	senderId, err := parseId(msg.SenderId)
	if err != nil {
		return types.GroupMessage{}, err
	}

	doc := groupMessageDoc{
		Id:        primitive.NewObjectID(),
		GroupId:   groupId,
		SenderId:  senderId,
		Text:      msg.Text,
		Image:     msg.Image,
		ReadBy:    []primitive.ObjectID{},
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.db.Collection(groupMessagesColl).InsertOne(ctx, doc); err != nil {
		return types.GroupMessage{}, err
	}

	return doc.toMessage(), nil
}

func (r *MongoRepository) GetGroupMessage(ctx context.Context, messageId string) (types.GroupMessage, error) {
	oid, err := parseId(messageId)
	if err != nil {
		return types.GroupMessage{}, err
	}

	var doc groupMessageDoc
	if err := r.db.Collection(groupMessagesColl).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return types.GroupMessage{}, translateErr(err)
	}

	return doc.toMessage(), nil
}

func (r *MongoRepository) GetGroupMessages(ctx context.Context, groupId string, limit int64) ([]types.GroupMessage, error) {
	oid, err := parseId(groupId)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.M{"created_at": 1})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.db.Collection(groupMessagesColl).Find(ctx, bson.M{"group_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []types.GroupMessage
	for cur.Next(ctx) {
		var doc groupMessageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		msgs = append(msgs, doc.toMessage())
	}

	return msgs, cur.Err()
}

// AddGroupMessageReader adds readerId to read_by for each id where it is
// absent, using $addToSet so concurrent marks from different readers commute.
// Returns the ids the reader was actually added to.
func (r *MongoRepository) AddGroupMessageReader(ctx context.Context, groupId, readerId string, messageIds []string) ([]string, error) {
	groupOid, err := parseId(groupId)
	if err != nil {
		return nil, err
	}
	readerOid, err := parseId(readerId)
	if err != nil {
		return nil, err
	}
	oids, err := parseIds(messageIds)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":      bson.M{"$in": oids},
		"group_id": groupOid,
		"read_by":  bson.M{"$ne": readerOid},
	}

	cur, err := r.db.Collection(groupMessagesColl).Find(
		ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var affected []string
	var affectedOids []primitive.ObjectID
	for cur.Next(ctx) {
		var doc groupMessageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		affected = append(affected, doc.Id.Hex())
		affectedOids = append(affectedOids, doc.Id)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	if len(affectedOids) == 0 {
		return nil, nil
	}

	_, err = r.db.Collection(groupMessagesColl).UpdateMany(
		ctx,
		bson.M{"_id": bson.M{"$in": affectedOids}},
		bson.M{"$addToSet": bson.M{"read_by": readerOid}},
	)
	if err != nil {
		return nil, err
	}

	return affected, nil
}

func (r *MongoRepository) DeleteGroupMessages(ctx context.Context, groupId string) error {
	oid, err := parseId(groupId)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(groupMessagesColl).DeleteMany(ctx, bson.M{"group_id": oid})
	return err
}

func (r *MongoRepository) CreateInvitation(ctx context.Context, groupId, senderId, receiverId string) (types.Invitation, error) {
	groupOid, err := parseId(groupId)
	if err != nil {
		return types.Invitation{}, err
	}
	senderOid, err := parseId(senderId)
	if err != nil {
		return types.Invitation{}, err
	}
	receiverOid, err := parseId(receiverId)
	if err != nil {
		return types.Invitation{}, err
	}

	doc := invitationDoc{
		Id:         primitive.NewObjectID(),
		GroupId:    groupOid,
		SenderId:   senderOid,
		ReceiverId: receiverOid,
		Status:     InvitationPending,
		CreatedAt:  time.Now().UTC(),
	}

	if _, err := r.db.Collection(invitationsColl).InsertOne(ctx, doc); err != nil {
		return types.Invitation{}, err
	}

	return doc.toInvitation(), nil
}

func (r *MongoRepository) GetInvitation(ctx context.Context, invitationId string) (types.Invitation, error) {
	oid, err := parseId(invitationId)
	if err != nil {
		return types.Invitation{}, err
	}

	var doc invitationDoc
	err = r.db.Collection(invitationsColl).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return types.Invitation{}, translateErr(err)
	}

	return doc.toInvitation(), nil
}

func (r *MongoRepository) UpdateInvitationStatus(ctx context.Context, invitationId, status string) error {
	oid, err := parseId(invitationId)
	if err != nil {
		return err
	}

	res, err := r.db.Collection(invitationsColl).UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// ExpirePendingInvitations marks every pending invitation for the receiver in
// the group as old, except the one identified by exceptInvitationId (pass ""
// to expire all of them).
func (r *MongoRepository) ExpirePendingInvitations(ctx context.Context, groupId, receiverId, exceptInvitationId string) error {
	groupOid, err := parseId(groupId)
	if err != nil {
		return err
	}
	receiverOid, err := parseId(receiverId)
	if err != nil {
		return err
	}

	filter := bson.M{
		"group_id":    groupOid,
		"receiver_id": receiverOid,
		"status":      InvitationPending,
	}
	if exceptInvitationId != "" {
		exceptOid, err := parseId(exceptInvitationId)
		if err != nil {
			return err
		}
		filter["_id"] = bson.M{"$ne": exceptOid}
	}

	_, err = r.db.Collection(invitationsColl).UpdateMany(
		ctx, filter, bson.M{"$set": bson.M{"status": InvitationOld}},
	)
	return err
}

func (r *MongoRepository) CreateNotification(ctx context.Context, params CreateNotificationParams) error {
	senderOid, err := parseId(params.SenderId)
	if err != nil {
		return err
	}
	receiverOid, err := parseId(params.ReceiverId)
	if err != nil {
		return err
	}

	doc := notificationDoc{
		Id:         primitive.NewObjectID(),
		Type:       params.Type,
		SenderId:   senderOid,
		ReceiverId: receiverOid,
		CreatedAt:  time.Now().UTC(),
	}
	if params.RelatedId != "" {
		relatedOid, err := parseId(params.RelatedId)
		if err != nil {
			return err
		}
		doc.RelatedId = relatedOid
	}

	_, err = r.db.Collection(notificationsColl).InsertOne(ctx, doc)
	return err
}
