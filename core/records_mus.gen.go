// Code generated by musgen-go. DO NOT EDIT.

package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	slicek19oaHvOh14eFcTvcWECowΞΞ = ord.NewSliceSer[string](ord.String)
)

var IDMUS = iDMUS{}

type iDMUS struct{}

func (s iDMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s iDMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s iDMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s iDMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var ItemKindMUS = itemKindMUS{}

type itemKindMUS struct{}

func (s itemKindMUS) Marshal(v ItemKind, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s itemKindMUS) Unmarshal(bs []byte) (v ItemKind, n int, err error) {
	tmp, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ItemKind(tmp)
	return
}

func (s itemKindMUS) Size(v ItemKind) (size int) {
	return ord.String.Size(string(v))
}

func (s itemKindMUS) Skip(bs []byte) (n int, err error) {
	return ord.String.Skip(bs)
}

var ItemStatusMUS = itemStatusMUS{}

type itemStatusMUS struct{}

func (s itemStatusMUS) Marshal(v ItemStatus, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s itemStatusMUS) Unmarshal(bs []byte) (v ItemStatus, n int, err error) {
	tmp, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ItemStatus(tmp)
	return
}

func (s itemStatusMUS) Size(v ItemStatus) (size int) {
	return ord.String.Size(string(v))
}

func (s itemStatusMUS) Skip(bs []byte) (n int, err error) {
	return ord.String.Skip(bs)
}

var ItemMUS = itemMUS{}

type itemMUS struct{}

func (s itemMUS) Marshal(v Item, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ItemKindMUS.Marshal(v.Kind, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.FileName, bs[n:])
	n += ord.String.Marshal(v.FileMime, bs[n:])
	n += varint.Int64.Marshal(v.FileSize, bs[n:])
	n += IDMUS.Marshal(v.ParentId, bs[n:])
	n += ItemStatusMUS.Marshal(v.Status, bs[n:])
	n += varint.Uint64.Marshal(v.QueueIndex, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.CreatedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.StartedAt, bs[n:])
	n += varint.Int64.Marshal(v.DurationMs, bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	return n + slicek19oaHvOh14eFcTvcWECowΞΞ.Marshal(v.Tags, bs[n:])
}

func (s itemMUS) Unmarshal(bs []byte) (v Item, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Kind, n1, err = ItemKindMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FileName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FileMime, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FileSize, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ParentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status, n1, err = ItemStatusMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.QueueIndex, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StartedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DurationMs, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Error, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Tags, n1, err = slicek19oaHvOh14eFcTvcWECowΞΞ.Unmarshal(bs[n:])
	n += n1
	return
}

func (s itemMUS) Size(v Item) (size int) {
	size = IDMUS.Size(v.Id)
	size += ItemKindMUS.Size(v.Kind)
	size += ord.String.Size(v.Source)
	size += ord.String.Size(v.FileName)
	size += ord.String.Size(v.FileMime)
	size += varint.Int64.Size(v.FileSize)
	size += IDMUS.Size(v.ParentId)
	size += ItemStatusMUS.Size(v.Status)
	size += varint.Uint64.Size(v.QueueIndex)
	size += raw.TimeUnixMicro.Size(v.CreatedAt)
	size += raw.TimeUnixMicro.Size(v.StartedAt)
	size += varint.Int64.Size(v.DurationMs)
	size += ord.String.Size(v.Error)
	return size + slicek19oaHvOh14eFcTvcWECowΞΞ.Size(v.Tags)
}

func (s itemMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ItemKindMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ItemStatusMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Uint64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = slicek19oaHvOh14eFcTvcWECowΞΞ.Skip(bs[n:])
	n += n1
	return
}

var ContentMUS = contentMUS{}

type contentMUS struct{}

func (s contentMUS) Marshal(v Content, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ItemId, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.Method, bs[n:])
	n += ord.Bool.Marshal(v.FallbackUsed, bs[n:])
	n += ord.String.Marshal(v.Output, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
}

func (s contentMUS) Unmarshal(bs []byte) (v Content, n int, err error) {
	v.ItemId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Method, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FallbackUsed, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Output, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s contentMUS) Size(v Content) (size int) {
	size = IDMUS.Size(v.ItemId)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.Method)
	size += ord.Bool.Size(v.FallbackUsed)
	size += ord.String.Size(v.Output)
	return size + raw.TimeUnixMicro.Size(v.UpdatedAt)
}

func (s contentMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.Bool.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}
