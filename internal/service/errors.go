package service

import (
	"errors"
	"fmt"
)

// 错误分类根，调用方通过 errors.Is 判断
var (
	ErrValidation = errors.New("参数校验失败")
	ErrConflict   = errors.New("数据冲突")
	ErrNotFound   = errors.New("记录不存在")
)

// 佣金相关错误
var (
	ErrCommissionRateInvalid = fmt.Errorf("%w: 佣金比例必须在 0-100 之间", ErrValidation)
	ErrCommissionKeyInvalid  = fmt.Errorf("%w: 佣金配置键无效", ErrValidation)
)

// 结算相关错误
var (
	ErrSettlementAmountInvalid = fmt.Errorf("%w: 成交金额必须大于 0", ErrValidation)
	ErrSettlementInputInvalid  = fmt.Errorf("%w: 结算参数无效", ErrValidation)
	ErrItemTypeInvalid         = fmt.Errorf("%w: 作品类型无效", ErrValidation)
	ErrCurrencyInvalid         = fmt.Errorf("%w: 币种无效", ErrValidation)
	ErrTransactionConflict     = fmt.Errorf("%w: 交易号已存在", ErrConflict)
	ErrSettlementStatusInvalid = fmt.Errorf("%w: 结算状态不允许该操作", ErrConflict)
	ErrSettlementNotFound      = fmt.Errorf("%w: 结算记录不存在", ErrNotFound)
)

// 作品与认证相关错误
var (
	ErrItemNotFound               = fmt.Errorf("%w: 作品不存在", ErrNotFound)
	ErrItemStatusInvalid          = fmt.Errorf("%w: 作品审核状态无效", ErrValidation)
	ErrCertificationNotFound      = fmt.Errorf("%w: 认证不存在", ErrNotFound)
	ErrCertificationConfigInvalid = fmt.Errorf("%w: 认证等级配置无效", ErrValidation)
	ErrMetricSourceUnsupported    = fmt.Errorf("%w: 不支持的认证指标来源", ErrValidation)
	ErrCertificateNumberExhausted = errors.New("证书编号生成失败")
)
