// Package protocolids 集中定义 didpeer 使用的主题名与直连协议 ID
package protocolids
