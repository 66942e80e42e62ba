package rules

import (
	"encoding/json"
	"fmt"
	"time"
)

// Типы правил, по ним движок находит стратегию
const (
	TypeSelfReferral      = "self_referral"
	TypeClickVelocity     = "click_velocity"
	TypeChargebackHistory = "chargeback_history"
	TypeSharedDevice      = "shared_device"
)

// RuleConfig представляет общий интерфейс для конфигурации правил
type RuleConfig interface {
	Validate() error
	GetThreshold() interface{}
}

// Decode разбирает jsonb-конфиг правила в типизированную структуру и валидирует её
func Decode(raw map[string]interface{}, dst RuleConfig) error {
	configBytes, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal rule config: %w", err)
	}
	if err := json.Unmarshal(configBytes, dst); err != nil {
		return fmt.Errorf("invalid rule config: %w", err)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Encode - обратное преобразование для сохранения в jsonb
func Encode(cfg RuleConfig) (map[string]interface{}, error) {
	configBytes, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	configMap := make(map[string]interface{})
	if err := json.Unmarshal(configBytes, &configMap); err != nil {
		return nil, err
	}
	return configMap, nil
}

// SelfReferralConfig - совпадение устройства/сети/аккаунта реферера и реферала
type SelfReferralConfig struct {
	FingerprintPoints int `json:"fingerprint_points"`
	IPPoints          int `json:"ip_points"`
	AccountPoints     int `json:"account_points"`
}

func (c *SelfReferralConfig) Validate() error {
	if c.FingerprintPoints < 0 || c.IPPoints < 0 || c.AccountPoints < 0 {
		return fmt.Errorf("points cannot be negative")
	}
	return nil
}

func (c *SelfReferralConfig) GetThreshold() interface{} {
	return c.AccountPoints
}

// ClickVelocityConfig - слишком много кликов по коду за окно
type ClickVelocityConfig struct {
	MaxClicks  int           `json:"max_clicks"`
	TimeWindow time.Duration `json:"time_window"`
	Points     int           `json:"points"`
}

func (c *ClickVelocityConfig) Validate() error {
	if c.MaxClicks <= 0 {
		return fmt.Errorf("max_clicks must be positive")
	}
	if c.TimeWindow <= 0 {
		return fmt.Errorf("time_window must be positive")
	}
	if c.Points < 0 {
		return fmt.Errorf("points cannot be negative")
	}
	return nil
}

func (c *ClickVelocityConfig) GetThreshold() interface{} {
	return c.MaxClicks
}

// ChargebackHistoryConfig - у реферала уже были возвраты/чарджбеки
type ChargebackHistoryConfig struct {
	RefundPoints     int `json:"refund_points"`
	ChargebackPoints int `json:"chargeback_points"`
}

func (c *ChargebackHistoryConfig) Validate() error {
	if c.RefundPoints < 0 || c.ChargebackPoints < 0 {
		return fmt.Errorf("points cannot be negative")
	}
	return nil
}

func (c *ChargebackHistoryConfig) GetThreshold() interface{} {
	return c.ChargebackPoints
}

// SharedDeviceConfig - одно устройство у нескольких участников
type SharedDeviceConfig struct {
	MinOtherMembers int `json:"min_other_members"`
	Points          int `json:"points"`
}

func (c *SharedDeviceConfig) Validate() error {
	if c.MinOtherMembers <= 0 {
		return fmt.Errorf("min_other_members must be positive")
	}
	if c.Points < 0 {
		return fmt.Errorf("points cannot be negative")
	}
	return nil
}

func (c *SharedDeviceConfig) GetThreshold() interface{} {
	return c.MinOtherMembers
}

// Spec - описание правила для сидирования
type Spec struct {
	Name     string
	Type     string
	Config   RuleConfig
	Priority int
}

// DefaultRules - набор правил, с которым сервис стартует на пустой базе
func DefaultRules() []Spec {
	return []Spec{
		{
			Name:     "Self referral",
			Type:     TypeSelfReferral,
			Config:   &SelfReferralConfig{FingerprintPoints: 40, IPPoints: 40, AccountPoints: 60},
			Priority: 100,
		},
		{
			Name:     "Chargeback history",
			Type:     TypeChargebackHistory,
			Config:   &ChargebackHistoryConfig{RefundPoints: 50, ChargebackPoints: 70},
			Priority: 90,
		},
		{
			Name:     "Shared device",
			Type:     TypeSharedDevice,
			Config:   &SharedDeviceConfig{MinOtherMembers: 1, Points: 45},
			Priority: 80,
		},
		{
			Name:     "Click velocity",
			Type:     TypeClickVelocity,
			Config:   &ClickVelocityConfig{MaxClicks: 20, TimeWindow: time.Hour, Points: 25},
			Priority: 50,
		},
	}
}

// ConfigForType возвращает пустой конфиг нужного типа для декодирования
func ConfigForType(ruleType string) (RuleConfig, error) {
	switch ruleType {
	case TypeSelfReferral:
		return &SelfReferralConfig{}, nil
	case TypeClickVelocity:
		return &ClickVelocityConfig{}, nil
	case TypeChargebackHistory:
		return &ChargebackHistoryConfig{}, nil
	case TypeSharedDevice:
		return &SharedDeviceConfig{}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", ruleType)
	}
}
