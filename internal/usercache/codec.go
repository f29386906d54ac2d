package usercache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"contactsss/internal/model"
)

// Cached snapshots carry an explicit format version so entries written by an
// older build are either readable or cleanly rejected (and re-loaded from the
// store) rather than misdecoded.
const snapshotVersionCurrent = 1

const (
	refreshTokenAbsent  = 0
	refreshTokenPresent = 1
)

var errCorruptSnapshot = errors.New("corrupt user snapshot")

func encodeUser(u *model.User) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(snapshotVersionCurrent)

	if err := binary.Write(&buf, binary.BigEndian, u.ID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, u.Username); err != nil {
		return nil, err
	}
	if err := writeString(&buf, u.Email); err != nil {
		return nil, err
	}
	if err := writeString(&buf, u.PasswordHash); err != nil {
		return nil, err
	}

	if u.Confirmed {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if u.RefreshToken == nil {
		buf.WriteByte(refreshTokenAbsent)
	} else {
		buf.WriteByte(refreshTokenPresent)
		if err := writeString(&buf, *u.RefreshToken); err != nil {
			return nil, err
		}
	}

	// Nanosecond precision: timestamptz rows carry microseconds and the
	// snapshot must round-trip them exactly.
	if err := binary.Write(&buf, binary.BigEndian, u.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeUser(data []byte) (*model.User, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil || version != snapshotVersionCurrent {
		return nil, errCorruptSnapshot
	}

	u := &model.User{}
	if err := binary.Read(r, binary.BigEndian, &u.ID); err != nil {
		return nil, errCorruptSnapshot
	}
	if u.Username, err = readString(r); err != nil {
		return nil, errCorruptSnapshot
	}
	if u.Email, err = readString(r); err != nil {
		return nil, errCorruptSnapshot
	}
	if u.PasswordHash, err = readString(r); err != nil {
		return nil, errCorruptSnapshot
	}

	confirmed, err := r.ReadByte()
	if err != nil {
		return nil, errCorruptSnapshot
	}
	u.Confirmed = confirmed == 1

	present, err := r.ReadByte()
	if err != nil {
		return nil, errCorruptSnapshot
	}
	switch present {
	case refreshTokenAbsent:
	case refreshTokenPresent:
		tok, err := readString(r)
		if err != nil {
			return nil, errCorruptSnapshot
		}
		u.RefreshToken = &tok
	default:
		return nil, errCorruptSnapshot
	}

	var createdAt int64
	if err := binary.Read(r, binary.BigEndian, &createdAt); err != nil {
		return nil, errCorruptSnapshot
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()

	if r.Len() != 0 {
		return nil, errCorruptSnapshot
	}

	return u, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > int(^uint16(0)) {
		return errors.New("string field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
