package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

const (
	flagActive      = 1 << 0
	flagCompromised = 1 << 1
)

func writeShortString(buf *bytes.Buffer, field, value string) error {
	if len(value) > 255 {
		return errors.New(field + " too long")
	}
	buf.WriteByte(byte(len(value)))
	buf.WriteString(value)
	return nil
}

func readShortString(reader *bytes.Reader) (string, error) {
	length, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if err := writeShortString(&buf, "refreshJTI", s.RefreshJTI); err != nil {
		return nil, err
	}
	if err := writeShortString(&buf, "userID", s.UserID); err != nil {
		return nil, err
	}
	if err := writeShortString(&buf, "userUUID", s.UserUUID); err != nil {
		return nil, err
	}
	if err := writeShortString(&buf, "familyID", s.FamilyID); err != nil {
		return nil, err
	}
	if err := writeShortString(&buf, "deviceID", s.DeviceID); err != nil {
		return nil, err
	}
	if err := writeShortString(&buf, "ipAddress", s.IPAddress); err != nil {
		return nil, err
	}
	if err := writeShortString(&buf, "loginMethod", s.LoginMethod); err != nil {
		return nil, err
	}

	if len(s.DeviceInfo) > 65535 {
		return nil, errors.New("deviceInfo too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.DeviceInfo))); err != nil {
		return nil, err
	}
	buf.WriteString(s.DeviceInfo)

	if err := binary.Write(&buf, binary.BigEndian, s.Generation); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.TokenVersion); err != nil {
		return nil, err
	}

	var flags byte
	if s.Active {
		flags |= flagActive
	}
	if s.Compromised {
		flags |= flagCompromised
	}
	buf.WriteByte(flags)

	for _, ts := range []int64{s.CreatedAt, s.LastUsedAt, s.AccessExpiresAt, s.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	if s.RefreshJTI, err = readShortString(reader); err != nil {
		return nil, err
	}
	if s.UserID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if s.UserUUID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if s.FamilyID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if s.DeviceID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if s.IPAddress, err = readShortString(reader); err != nil {
		return nil, err
	}
	if s.LoginMethod, err = readShortString(reader); err != nil {
		return nil, err
	}

	var infoLen uint16
	if err := binary.Read(reader, binary.BigEndian, &infoLen); err != nil {
		return nil, err
	}
	info := make([]byte, infoLen)
	if _, err := io.ReadFull(reader, info); err != nil {
		return nil, err
	}
	s.DeviceInfo = string(info)

	if err := binary.Read(reader, binary.BigEndian, &s.Generation); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.TokenVersion); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Active = flags&flagActive != 0
	s.Compromised = flags&flagCompromised != 0

	for _, field := range []*int64{&s.CreatedAt, &s.LastUsedAt, &s.AccessExpiresAt, &s.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, field); err != nil {
			return nil, err
		}
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing session data")
	}

	return s, nil
}
