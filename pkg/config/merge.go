package config

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// MergeConfig 合并配置
// - dst 和 src 都为 nil 时返回错误
// - dst 为 nil 返回 src，src 为 nil 返回 dst
// - 否则 src 的非零值覆盖 dst，返回合并后的 dst
func MergeConfig[T any](dst, src *T) (*T, error) {
	if dst == nil && src == nil {
		return nil, errors.New("both dst and src cannot be nil")
	}
	if dst == nil {
		return src, nil
	}
	if src == nil {
		return dst, nil
	}

	if err := mergeValues(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, err
	}
	return dst, nil
}

// mergeValues 递归合并
func mergeValues(dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		srcType := src.Type()
		for i := 0; i < src.NumField(); i++ {
			field := srcType.Field(i)
			if !field.IsExported() {
				continue
			}
			dstField := dst.FieldByName(field.Name)
			if !dstField.IsValid() || !dstField.CanSet() {
				continue
			}
			if err := mergeValues(dstField, src.Field(i)); err != nil {
				return errors.Wrapf(err, "merge field %s", field.Name)
			}
		}
		return nil
	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		iter := src.MapRange()
		for iter.Next() {
			dst.SetMapIndex(iter.Key(), iter.Value())
		}
		return nil
	case reflect.Ptr:
		if src.IsNil() {
			return nil
		}
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return mergeValues(dst.Elem(), src.Elem())
	default:
		// 切片与基本类型整体覆盖
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}
