package serializer

import (
	"bytes"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/valyala/bytebufferpool"
)

// msgpackHandle RawToString=true, MapType=map[string]interface{}
var msgpackHandle = &codec.MsgpackHandle{}

func init() {
	msgpackHandle.MapType = reflect.TypeOf(map[string]interface{}{})
	msgpackHandle.RawToString = true
}

var bufferPool bytebufferpool.Pool

// Encode 使用 msgpack 编码
func Encode(v interface{}) ([]byte, error) {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	if err := codec.NewEncoder(buf, msgpackHandle).Encode(v); err != nil {
		return nil, errors.Wrap(err, "msgpack encode")
	}

	// buf 会被回收复用
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}

// Decode 使用 msgpack 解码
func Decode(data []byte, v interface{}) error {
	if err := codec.NewDecoder(bytes.NewReader(data), msgpackHandle).Decode(v); err != nil {
		return errors.Wrap(err, "msgpack decode")
	}
	return nil
}
