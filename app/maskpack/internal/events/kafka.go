package events

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/mq/kafka"
	"github.com/lk2023060901/maskpack/pkg/serializer"
)

const (
	HeaderKind    = "kind"
	HeaderEventID = "event_id"
)

var codec = serializer.NewJSON()

// EncodeMessage 事件转 Kafka 消息，按 user_id 分区保证同一玩家有序
func EncodeMessage(evt *model.Event) (*kafka.Message, error) {
	value, err := codec.Serialize(evt)
	if err != nil {
		return nil, errors.Wrapf(err, "encode event %s", evt.Kind)
	}
	return &kafka.Message{
		Key:   []byte(evt.UserID),
		Value: value,
		Headers: map[string]string{
			HeaderKind:    string(evt.Kind),
			HeaderEventID: strconv.FormatInt(evt.ID, 10),
		},
	}, nil
}

// DecodeMessage Kafka 消息还原事件
func DecodeMessage(msg *kafka.Message) (*model.Event, error) {
	var evt model.Event
	if err := codec.Deserialize(msg.Value, &evt); err != nil {
		return nil, errors.Wrap(err, "decode event")
	}
	return &evt, nil
}
