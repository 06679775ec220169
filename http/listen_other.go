//go:build !unix

package http

import "syscall"

func reuseAddr(network, address string, conn syscall.RawConn) error {
	return nil
}
