package trailvtab

import "encoding/hex"

// Column returns the value of column i for the current row:
//
//	0   trail UUID as 32 lowercase hex characters
//	1   event timestamp as int64
//	2…  catalog field i-2, as a string holding the exact stored bytes
func (c *Cursor) Column(i int) (any, error) {
	if c.event == nil {
		return nil, newProtocolError("%s: column %d requested with no current row", ModuleName, i)
	}

	switch i {
	case 0:
		return c.uuidHex()
	case 1:
		return int64(c.event.Timestamp), nil
	}

	f := i - leadingColumns
	if f < 0 || f >= len(c.event.Items) {
		return nil, newProtocolError("%s: column %d out of range", ModuleName, i)
	}
	return string(c.store.ItemValue(c.event.Items[f])), nil
}

func (c *Cursor) uuidHex() (string, error) {
	if c.idHex != "" && c.idTrail == c.trail {
		return c.idHex, nil
	}
	id, err := c.store.UUID(c.trail)
	if err != nil {
		return "", newStoreError(err, "%s failed to read uuid of trail %d", ModuleName, c.trail)
	}
	c.idTrail = c.trail
	c.idHex = hex.EncodeToString(id[:])
	return c.idHex, nil
}
