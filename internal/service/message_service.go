package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxMessageRunes = 4000
	messagePage     = 100
)

type MessageService struct {
	db       *gorm.DB
	messages *mysql.MessageRepository
	groups   *mysql.GroupRepository
	friends  *mysql.FriendRepository
	broker   realtime.Broker
	log      *zap.Logger
}

func NewMessageService(db *gorm.DB, broker realtime.Broker, log *zap.Logger) *MessageService {
	return &MessageService{
		db:       db,
		messages: &mysql.MessageRepository{DB: db},
		groups:   &mysql.GroupRepository{DB: db},
		friends:  &mysql.FriendRepository{DB: db},
		broker:   broker,
		log:      log,
	}
}

func messageBody(content, imageURL string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" && imageURL == "" {
		return "", validation("message is empty")
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return "", validation("message longer than %d characters", maxMessageRunes)
	}
	return content, nil
}

func pageLimit(limit int) int {
	if limit <= 0 || limit > messagePage {
		return messagePage
	}
	return limit
}

// SendGroupMessage 发送时重新校验成员身份，不依赖打开页面时的状态
func (s *MessageService) SendGroupMessage(ctx context.Context, groupID, senderID uint64, content, imageURL string) (*model.GroupMessage, error) {
	content, err := messageBody(content, imageURL)
	if err != nil {
		return nil, err
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, storeErr(err, fmt.Sprintf("group %d", groupID))
	}
	if _, err := requireRole(ctx, s.db, groupID, senderID, isMember); err != nil {
		return nil, err
	}
	msg := &model.GroupMessage{GroupID: groupID, SenderID: senderID, Content: content, ImageURL: imageURL}
	if err := s.messages.CreateGroupMessage(ctx, msg); err != nil {
		return nil, storeErr(err, "create group message")
	}
	publish(ctx, s.broker, s.log, realtime.GroupTopic(groupID), realtime.KindInsert, msg.ID, msg)
	return msg, nil
}

// ListGroupMessages 升序，afterID 之后的消息
func (s *MessageService) ListGroupMessages(ctx context.Context, groupID, userID, afterID uint64, limit int) ([]model.GroupMessage, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, storeErr(err, fmt.Sprintf("group %d", groupID))
	}
	if _, err := requireRole(ctx, s.db, groupID, userID, isMember); err != nil {
		return nil, err
	}
	list, err := s.messages.ListGroupMessages(ctx, groupID, afterID, pageLimit(limit))
	if err != nil {
		return nil, storeErr(err, "list group messages")
	}
	return list, nil
}

// DeleteGroupMessage 管理员总是可以删除；发送者在 allow_message_deletion 开启时可删除自己的消息
func (s *MessageService) DeleteGroupMessage(ctx context.Context, groupID, userID, messageID uint64) error {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return storeErr(err, fmt.Sprintf("group %d", groupID))
	}
	role, err := requireRole(ctx, s.db, groupID, userID, isMember)
	if err != nil {
		return err
	}
	msg, err := s.messages.FindGroupMessage(ctx, groupID, messageID)
	if err != nil {
		return storeErr(err, fmt.Sprintf("message %d", messageID))
	}
	if !role.CanManage() && !(msg.SenderID == userID && g.Settings.AllowMessageDeletion) {
		return ErrUnauthorized
	}
	n, err := s.messages.DeleteGroupMessage(ctx, groupID, messageID)
	if err != nil {
		return storeErr(err, "delete message")
	}
	if n == 0 {
		return fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	publish(ctx, s.broker, s.log, realtime.GroupTopic(groupID), realtime.KindDelete, messageID, nil)
	return nil
}

// SendDirectMessage 仅好友之间可以私信
func (s *MessageService) SendDirectMessage(ctx context.Context, senderID, receiverID uint64, content, imageURL string) (*model.DirectMessage, error) {
	content, err := messageBody(content, imageURL)
	if err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, validation("cannot message yourself")
	}
	ok, err := s.friends.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, storeErr(err, "check friendship")
	}
	if !ok {
		return nil, fmt.Errorf("%w: only friends can exchange messages", ErrUnauthorized)
	}
	msg := &model.DirectMessage{SenderID: senderID, ReceiverID: receiverID, Content: content, ImageURL: imageURL}
	if err := s.messages.CreateDirectMessage(ctx, msg); err != nil {
		return nil, storeErr(err, "create direct message")
	}
	publish(ctx, s.broker, s.log, realtime.DirectTopic(senderID, receiverID), realtime.KindInsert, msg.ID, msg)
	return msg, nil
}

func (s *MessageService) ListDirectMessages(ctx context.Context, userID, peerID, afterID uint64, limit int) ([]model.DirectMessage, error) {
	if userID == peerID {
		return nil, validation("cannot message yourself")
	}
	list, err := s.messages.ListDirectMessages(ctx, userID, peerID, afterID, pageLimit(limit))
	if err != nil {
		return nil, storeErr(err, "list direct messages")
	}
	return list, nil
}

func (s *MessageService) MarkConversationRead(ctx context.Context, userID, peerID uint64) (int64, error) {
	n, err := s.messages.MarkConversationRead(ctx, userID, peerID)
	if err != nil {
		return 0, storeErr(err, "mark conversation read")
	}
	return n, nil
}

// AuthorizeTopic 订阅前的权限检查：群成员、私信双方、自己的收件箱
func (s *MessageService) AuthorizeTopic(ctx context.Context, userID uint64, topic string) (realtime.Topic, error) {
	t, err := realtime.ParseTopic(topic)
	if err != nil {
		return t, validation("%v", err)
	}
	switch t.Kind {
	case realtime.TopicGroup:
		if _, err := s.groups.FindByID(ctx, t.IDs[0]); err != nil {
			return t, storeErr(err, fmt.Sprintf("group %d", t.IDs[0]))
		}
		if _, err := requireRole(ctx, s.db, t.IDs[0], userID, isMember); err != nil {
			return t, err
		}
	case realtime.TopicDirect:
		if t.IDs[0] != userID && t.IDs[1] != userID {
			return t, ErrUnauthorized
		}
	case realtime.TopicUser:
		if t.IDs[0] != userID {
			return t, ErrUnauthorized
		}
	}
	return t, nil
}
