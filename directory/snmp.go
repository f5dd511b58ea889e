package directory

import (
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Identity OIDs, in preference order: hrDeviceDescr usually carries a
// clean model name where sysDescr is a long firmware string.
const (
	oidHrDeviceDescr = "1.3.6.1.2.1.25.3.2.1.3.1"
	oidSysDescr      = "1.3.6.1.2.1.1.1.0"
	oidSysName       = "1.3.6.1.2.1.1.5.0"
)

// snmpIdentity queries a host for its device identity over SNMP v2c.
// Returns the best available make-and-model string. Tests replace this
// variable to avoid live SNMP traffic.
var snmpIdentity = func(ip, community string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	snmp := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      161,
		Version:   gosnmp.Version2c,
		Community: community,
		Timeout:   timeout,
		Retries:   1,
	}
	if err := snmp.Connect(); err != nil {
		return "", fmt.Errorf("snmp connect %s: %w", ip, err)
	}
	defer snmp.Conn.Close()

	pkt, err := snmp.Get([]string{oidHrDeviceDescr, oidSysDescr, oidSysName})
	if err != nil {
		return "", fmt.Errorf("snmp get %s: %w", ip, err)
	}

	byOid := make(map[string]string, len(pkt.Variables))
	for _, v := range pkt.Variables {
		if s := pduString(v); s != "" {
			byOid[v.Name] = s
		}
	}
	for _, oid := range []string{"." + oidHrDeviceDescr, "." + oidSysDescr, "." + oidSysName} {
		if s, ok := byOid[oid]; ok {
			return s, nil
		}
	}
	// some agents answer without the leading dot
	for _, oid := range []string{oidHrDeviceDescr, oidSysDescr, oidSysName} {
		if s, ok := byOid[oid]; ok {
			return s, nil
		}
	}
	return "", nil
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}
