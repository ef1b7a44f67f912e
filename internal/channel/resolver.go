package channel

import "strings"

// Separator 用于拼接请求ID和会话ID的分隔符
const Separator = "__"

// ID 根据两个用户ID计算会话ID。对成员ID排序后拼接，
// 与发起方向无关，双方计算结果一致。
func ID(uidA, uidB string) string {
	if uidA > uidB {
		uidA, uidB = uidB, uidA
	}
	return uidA + Separator + uidB
}

// RequestID 根据发送方和接收方的用户ID计算好友请求ID。
// 保持方向，同一有序对最多存在一条请求记录。
func RequestID(fromUID, toUID string) string {
	return fromUID + Separator + toUID
}

// Members 从会话ID还原成员ID对
func Members(channelID string) (string, string) {
	parts := strings.SplitN(channelID, Separator, 2)
	if len(parts) != 2 {
		return channelID, ""
	}
	return parts[0], parts[1]
}
