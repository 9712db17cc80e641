package util

import (
	"reflect"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
)

// IsNil 檢查介面是否為 nil
// 注意：這個函數會同時檢查介面的型別和值
// 只有當兩者都為 nil 時，才會返回 true
func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}

	switch reflect.TypeOf(i).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Array, reflect.Chan, reflect.Slice:
		return reflect.ValueOf(i).IsNil()
	}

	return false
}

// HasImplementation 檢查介面是否有具體實體值
func HasImplementation(i interface{}) bool {
	if i == nil {
		return false
	}
	return !reflect.ValueOf(i).IsZero()
}

// VariantIDs 取出品項切片中的所有 variantID，保持原本順序
func VariantIDs(lines []model.CartLine) []string {
	ids := make([]string, 0, len(lines))
	for i := range lines {
		ids = append(ids, lines[i].VariantID)
	}
	return ids
}
