package agentauth

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const flowRecordVersion1 = 1

// encodeFlowState serializes a flow record as a versioned binary envelope:
// version byte, tag, attempts, expiry, length-prefixed identity strings,
// then the continuation activity as length-prefixed JSON (zero length when
// absent). The transient TokenResponse is never part of the record.
func encodeFlowState(state *FlowState) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(flowRecordVersion1)
	buf.WriteByte(byte(state.Tag))

	attempts := state.AttemptsRemaining
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 65535 {
		return nil, errors.New("flow attempts out of range")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(attempts)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, state.FlowExpires); err != nil {
		return nil, err
	}

	for _, field := range []string{state.ChannelID, state.UserID, state.AuthHandlerID, state.ConnectionName} {
		if len(field) > 65535 {
			return nil, errors.New("flow record field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	var activity []byte
	if state.ContinuationActivity != nil {
		data, err := json.Marshal(state.ContinuationActivity)
		if err != nil {
			return nil, err
		}
		activity = data
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(activity))); err != nil {
		return nil, err
	}
	buf.Write(activity)

	return buf.Bytes(), nil
}

func decodeFlowState(data []byte) (*FlowState, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
	}
	if version != flowRecordVersion1 {
		return nil, fmt.Errorf("%w: version %d", ErrFlowRecordInvalid, version)
	}

	tag, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
	}
	if tag > byte(FlowFailure) {
		return nil, fmt.Errorf("%w: tag %d", ErrFlowRecordInvalid, tag)
	}

	state := &FlowState{Tag: FlowTag(tag)}

	var attempts uint16
	if err := binary.Read(reader, binary.BigEndian, &attempts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
	}
	state.AttemptsRemaining = int(attempts)

	if err := binary.Read(reader, binary.BigEndian, &state.FlowExpires); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
	}

	for _, field := range []*string{&state.ChannelID, &state.UserID, &state.AuthHandlerID, &state.ConnectionName} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
		}
		*field = string(raw)
	}

	var activityLen uint32
	if err := binary.Read(reader, binary.BigEndian, &activityLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
	}
	if activityLen > 0 {
		raw := make([]byte, activityLen)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
		}
		activity := &Activity{}
		if err := json.Unmarshal(raw, activity); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFlowRecordInvalid, err)
		}
		state.ContinuationActivity = activity
	}

	return state, nil
}
