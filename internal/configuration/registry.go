// Package configuration 服务器可调配置项的类型注册表
//
// 每个配置项以 namespace.key 标识，声明值类型与默认值；
// 持久化的值以 JSON 存储，读取与写入都先经过注册表校验。
package configuration

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind 配置值类型
type Kind string

const (
	KindString     Kind = "string"
	KindStringList Kind = "list"
)

// Option 一个配置项的声明
type Option struct {
	Namespace  string      `json:"namespace"`
	Key        string      `json:"key"`
	Summary    string      `json:"summary"`
	PrettyType string      `json:"pretty_type"`
	Kind       Kind        `json:"type"`
	Default    interface{} `json:"default"`
}

// ── 错误 ──

// NoSuchNamespaceError 命名空间不存在
type NoSuchNamespaceError struct {
	Namespace string
}

func (e *NoSuchNamespaceError) Error() string {
	return fmt.Sprintf("Unknown configuration namespace: %q", e.Namespace)
}

// NoSuchKeyError 命名空间下不存在该键
type NoSuchKeyError struct {
	Namespace string
	Key       string
}

func (e *NoSuchKeyError) Error() string {
	return fmt.Sprintf("Unknown configuration key: \"%s.%s\"", e.Namespace, e.Key)
}

// InvalidValueError 值类型与声明不符
type InvalidValueError struct {
	Namespace string
	Key       string
	Expected  Kind
	Got       string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("Invalid type for configuration key \"%s.%s\": expected %s, got %s",
		e.Namespace, e.Key, e.Expected, e.Got)
}

// ── 注册表 ──

// Registry 配置项注册表，创建后只读
type Registry struct {
	options map[string]map[string]Option
}

// DefaultOptions 内置配置项（按命名空间字母序维护）
func DefaultOptions() []Option {
	return []Option{
		{
			Namespace:  "content",
			Key:        "local-languages",
			Summary:    "The list of languages in which users can upload content.",
			PrettyType: "A list of ISO language codes",
			Kind:       KindStringList,
			Default:    []string{"ar", "en", "es", "fr"},
		},
		{
			Namespace:  "home-page",
			Key:        "displayed-package-ids",
			Summary:    "The list of package-related cards displayed on the home page.",
			PrettyType: "A list of strings",
			Kind:       KindStringList,
			Default:    []string{},
		},
		{
			Namespace:  "server",
			Key:        "site-name",
			Summary:    "The pretty name of the server, as seen by users of the web interface.",
			PrettyType: "A string",
			Kind:       KindString,
			Default:    "Ideas Cube",
		},
	}
}

// NewRegistry 创建注册表，未传入配置项时使用 DefaultOptions
func NewRegistry(options ...Option) *Registry {
	if len(options) == 0 {
		options = DefaultOptions()
	}
	r := &Registry{options: make(map[string]map[string]Option)}
	for _, opt := range options {
		if r.options[opt.Namespace] == nil {
			r.options[opt.Namespace] = make(map[string]Option)
		}
		r.options[opt.Namespace][opt.Key] = opt
	}
	return r
}

// Namespaces 全部命名空间（排序）
func (r *Registry) Namespaces() []string {
	names := make([]string, 0, len(r.options))
	for ns := range r.options {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Keys 命名空间下的全部键（排序）
func (r *Registry) Keys(namespace string) ([]string, error) {
	opts, ok := r.options[namespace]
	if !ok {
		return nil, &NoSuchNamespaceError{Namespace: namespace}
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Describe 返回配置项声明，Default 为副本
func (r *Registry) Describe(namespace, key string) (Option, error) {
	opts, ok := r.options[namespace]
	if !ok {
		return Option{}, &NoSuchNamespaceError{Namespace: namespace}
	}
	opt, ok := opts[key]
	if !ok {
		return Option{}, &NoSuchKeyError{Namespace: namespace, Key: key}
	}
	opt.Default = copyValue(opt.Default)
	return opt, nil
}

// Default 返回默认值副本，调用方修改不影响注册表
func (r *Registry) Default(namespace, key string) (interface{}, error) {
	opt, err := r.Describe(namespace, key)
	if err != nil {
		return nil, err
	}
	return opt.Default, nil
}

// Check 校验 Go 值的类型：KindString 要求 string，KindStringList 要求 []string
func (r *Registry) Check(namespace, key string, value interface{}) error {
	opt, err := r.Describe(namespace, key)
	if err != nil {
		return err
	}
	ok := false
	switch opt.Kind {
	case KindString:
		_, ok = value.(string)
	case KindStringList:
		_, ok = value.([]string)
	}
	if !ok {
		return &InvalidValueError{Namespace: namespace, Key: key, Expected: opt.Kind, Got: goTypeName(value)}
	}
	return nil
}

// Decode 将 JSON 解码为配置项声明的类型
func (r *Registry) Decode(namespace, key string, raw []byte) (interface{}, error) {
	opt, err := r.Describe(namespace, key)
	if err != nil {
		return nil, err
	}

	invalid := &InvalidValueError{Namespace: namespace, Key: key, Expected: opt.Kind, Got: jsonTypeName(raw)}
	switch opt.Kind {
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || invalid.Got != "string" {
			return nil, invalid
		}
		return s, nil
	case KindStringList:
		var list []string
		if invalid.Got != "list" {
			return nil, invalid
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			invalid.Got = "list with non-string items"
			return nil, invalid
		}
		if list == nil {
			list = []string{}
		}
		return list, nil
	}
	return nil, invalid
}

// Encode 校验并编码为 JSON
func (r *Registry) Encode(namespace, key string, value interface{}) ([]byte, error) {
	if err := r.Check(namespace, key, value); err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

func copyValue(v interface{}) interface{} {
	if list, ok := v.([]string); ok {
		out := make([]string, len(list))
		copy(out, list)
		return out
	}
	return v
}

func goTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []string, []interface{}:
		return "list"
	case bool:
		return "boolean"
	case int, int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// jsonTypeName 原始 JSON 的顶层类型
func jsonTypeName(raw []byte) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "invalid JSON"
	}
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []interface{}:
		return "list"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case map[string]interface{}:
		return "object"
	}
	return "unknown"
}
