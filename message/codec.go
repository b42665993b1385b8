// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package message

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
)

// MaxDepth is the deepest Multiple nesting accepted by Unmarshal and Marshal.
const MaxDepth = 64

var (
	ErrMalformed        = errors.New("malformed message")
	ErrNoVariant        = errors.New("message has no variant")
	ErrMultipleVariants = errors.New("message has multiple variants")
	ErrUnknownVariant   = errors.New("unknown message variant")
	ErrInvalidPayload   = errors.New("invalid message payload")
	ErrTooDeep          = errors.New("message nesting too deep")
)

// Unmarshal decodes one externally tagged message, such as
// {"Multiple":[{"UpdateTimer":null},"RefreshedConfig"]}.
func Unmarshal(data []byte) (Message, error) {
	if !json.Valid(data) {
		return nil, ErrMalformed
	}
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	return decode(value, dataType, 0)
}

func decode(value []byte, dataType jsonparser.ValueType, depth int) (Message, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	switch dataType {
	case jsonparser.String:
		return decodeUnit(Kind(value))
	case jsonparser.Object:
		var (
			tags        []string
			payload     []byte
			payloadType jsonparser.ValueType
		)
		err := jsonparser.ObjectEach(value, func(key []byte, v []byte, t jsonparser.ValueType, _ int) error {
			tags = append(tags, string(key))
			payload, payloadType = v, t
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		switch len(tags) {
		case 0:
			return nil, ErrNoVariant
		case 1:
			return decodeVariant(Kind(tags[0]), payload, payloadType, depth)
		default:
			return nil, errors.Wrapf(ErrMultipleVariants, "tags %s", strings.Join(tags, ","))
		}
	default:
		return nil, errors.Wrapf(ErrNoVariant, "unexpected %s", dataType)
	}
}

func decodeUnit(kind Kind) (Message, error) {
	switch kind {
	case KindRefreshedConfig:
		return RefreshedConfig{}, nil
	case KindMultiple, KindUpdateTimer, KindUpdateTimerState, KindUpdateProfiles:
		return nil, errors.Wrapf(ErrInvalidPayload, "%s requires a payload", kind)
	default:
		return nil, errors.Wrapf(ErrUnknownVariant, "%q", string(kind))
	}
}

func decodeVariant(kind Kind, payload []byte, payloadType jsonparser.ValueType, depth int) (Message, error) {
	switch kind {
	case KindMultiple:
		if payloadType != jsonparser.Array {
			return nil, errors.Wrapf(ErrInvalidPayload, "%s expects an array, got %s", kind, payloadType)
		}
		msgs := Multiple{}
		var firstErr error
		_, err := jsonparser.ArrayEach(payload, func(v []byte, t jsonparser.ValueType, _ int, err error) {
			if firstErr != nil {
				return
			}
			if err != nil {
				firstErr = errors.Wrap(ErrMalformed, err.Error())
				return
			}
			m, err := decode(v, t, depth+1)
			if err != nil {
				firstErr = err
				return
			}
			msgs = append(msgs, m)
		})
		if firstErr != nil {
			return nil, firstErr
		}
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		return msgs, nil

	case KindUpdateTimer:
		switch payloadType {
		case jsonparser.Null:
			return UpdateTimer{}, nil
		case jsonparser.Object:
			timer := &Timer{}
			if err := json.Unmarshal(payload, timer); err != nil {
				return nil, errors.Wrapf(ErrInvalidPayload, "%s: %v", kind, err)
			}
			return UpdateTimer{Timer: timer}, nil
		default:
			return nil, errors.Wrapf(ErrInvalidPayload, "%s expects an object or null, got %s", kind, payloadType)
		}

	case KindUpdateTimerState:
		state, err := NewTimerState(rawValue(payload, payloadType))
		if err != nil {
			return nil, err
		}
		return UpdateTimerState{State: state}, nil

	case KindUpdateProfiles:
		if payloadType != jsonparser.Array {
			return nil, errors.Wrapf(ErrInvalidPayload, "%s expects an array, got %s", kind, payloadType)
		}
		profiles := UpdateProfiles{}
		if err := json.Unmarshal(payload, &profiles); err != nil {
			return nil, errors.Wrapf(ErrInvalidPayload, "%s: %v", kind, err)
		}
		return profiles, nil

	case KindRefreshedConfig:
		if payloadType != jsonparser.Null {
			return nil, errors.Wrapf(ErrInvalidPayload, "%s takes no payload", kind)
		}
		return RefreshedConfig{}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownVariant, "%q", string(kind))
	}
}

// rawValue restores the quotes jsonparser strips from string values.
func rawValue(value []byte, dataType jsonparser.ValueType) []byte {
	if dataType != jsonparser.String {
		return value
	}
	quoted := make([]byte, 0, len(value)+2)
	quoted = append(quoted, '"')
	quoted = append(quoted, value...)
	return append(quoted, '"')
}

// Marshal encodes m in the same externally tagged form Unmarshal reads.
func Marshal(m Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, m, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, m Message, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}

	switch v := m.(type) {
	case Multiple:
		buf.WriteString(`{"Multiple":[`)
		for i, sub := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, sub, depth+1); err != nil {
				return err
			}
		}
		buf.WriteString(`]}`)
		return nil
	case UpdateTimer:
		return encodeTagged(buf, KindUpdateTimer, v.Timer)
	case UpdateTimerState:
		return encodeTagged(buf, KindUpdateTimerState, v.State)
	case UpdateProfiles:
		profiles := []ProfileInfo(v)
		if profiles == nil {
			profiles = []ProfileInfo{}
		}
		return encodeTagged(buf, KindUpdateProfiles, profiles)
	case RefreshedConfig:
		buf.WriteString(`"` + string(KindRefreshedConfig) + `"`)
		return nil
	case nil:
		return ErrNoVariant
	default:
		return errors.Wrapf(ErrUnknownVariant, "%T", m)
	}
}

func encodeTagged(buf *bytes.Buffer, kind Kind, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encode %s", kind)
	}
	buf.WriteString(`{"` + string(kind) + `":`)
	buf.Write(data)
	buf.WriteByte('}')
	return nil
}
