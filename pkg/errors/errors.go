package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 打卡模块错误。
var (
	CheckInAlreadyDone = Definition{Code: "CHECK_IN_ALREADY_DONE", Message: "Check-in already done"}
)

// 记录存储错误。
var (
	StoreIOFailed = Definition{Code: "STORE_IO_FAILED", Message: "Record store write failed"}
)

// 消息通道错误。
var (
	TransportSendFailed   = Definition{Code: "TRANSPORT_SEND_FAILED", Message: "Message send failed"}
	TransportLookupFailed = Definition{Code: "TRANSPORT_LOOKUP_FAILED", Message: "User lookup failed"}
)

// 导出模块错误。
var (
	ExportBuildFailed    = Definition{Code: "EXPORT_BUILD_FAILED", Message: "Report build failed"}
	ExportDeliveryFailed = Definition{Code: "EXPORT_DELIVERY_FAILED", Message: "Report delivery failed"}
)
