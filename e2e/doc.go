// Package e2e 在真实文件系统上运行完整流水线的端到端测试。
package e2e
