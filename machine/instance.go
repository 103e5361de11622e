package machine

import (
	"net"
	"os"
	"strconv"

	"github.com/google/uuid"
)

// NewInstanceID 生成 "<host>:<pid>:<uuid 前 8 位>" 形式的实例标识
//
// host 优先取本机第一个非回环 IPv4 地址，取不到时使用主机名。
func NewInstanceID() InstanceID {
	host := "unknown"
	if ip, err := localIPv4(); err == nil {
		host = ip.String()
	} else if name, err := os.Hostname(); err == nil {
		host = name
	}
	return InstanceID(host + ":" + strconv.Itoa(os.Getpid()) + ":" + uuid.NewString()[:8])
}

func localIPv4() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ip := ipnet.IP.To4(); ip != nil {
				return ip, nil
			}
		}
	}
	return nil, errNoIPv4
}
