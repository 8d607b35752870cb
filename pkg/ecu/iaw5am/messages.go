package iaw5am

import (
	"encoding/binary"
	"time"

	"github.com/albenik/bcd"
	"github.com/roffe/gokline/pkg/kwp2000"
)

const (
	modeRead  = 0x09
	modeErase = 0x03

	writerID = "5AMTOOL0001"
)

var (
	msgStartCommunication = kwp2000.MustMessage(kwp2000.AddrTester, kwp2000.START_COMMUNICATION)            // 81 10 F1 81
	msgDiagnosticSession  = kwp2000.MustMessage(kwp2000.AddrTester, kwp2000.START_DIAGNOSTIC_SESSION, 0x85) // 82 10 F1 10 85
	msgIdentification     = kwp2000.MustMessage(kwp2000.AddrTester, kwp2000.READ_ECU_IDENTIFICATION, 0x80)  // 82 10 F1 1A 80
	msgSecurityAccess     = kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.SECURITY_ACCESS, 0x01)         // 82 10 01 27 01

	msgTimingParameters = kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.ACCESS_TIMING_PARAMETERS, 0x03, 0x00, 0x0A, 0x00, 0x14, 0x00)
	msgEraseRoutine     = kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.START_ROUTINE_BY_LOCAL_IDENTIFIER, 0x02, 0x00)
	msgEraseStart       = kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.START_ROUTINE_BY_LOCAL_IDENTIFIER, 0x02, 0x01)
	msgRequestDownload  = kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.REQUEST_DOWNLOAD, 0x00, 0x40, 0x00, 0x11, 0x04, 0xC0, 0x08)
	msgTransferExit     = kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.REQUEST_TRANSFER_EXIT)
	msgProgramStart     = kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.START_ROUTINE_BY_LOCAL_IDENTIFIER, 0x04, 0x00)
)

// 84 10 01 10 0C 0C <mode>
func msgExtendedSession(mode byte) []byte {
	return kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.START_DIAGNOSTIC_SESSION, 0x0C, 0x0C, mode)
}

// 86 10 01 27 02 <key>
func msgSecurityKey(key uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, key)
	return kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.SECURITY_ACCESS, 0x02, k[0], k[1], k[2], k[3])
}

// 87 10 01 36 11 00 FE 02 01 <block>
func msgRequestBlock(block int) []byte {
	return kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.TRANSFER_DATA, 0x11, 0x00, 0xFE, 0x02, 0x01, byte(block))
}

// 86 10 01 36 21 00 <offset> 20
func msgReadMemory(offset uint16) []byte {
	return kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.TRANSFER_DATA, 0x21, 0x00, byte(offset>>8), byte(offset), chunkSize)
}

func msgWriterID() []byte {
	return kwp2000.MustMessage(kwp2000.AddrSession, append([]byte{kwp2000.WRITE_DATA_BY_LOCAL_IDENTIFIER, 0x98}, writerID...)...)
}

// 85 10 01 3B 99 YY MM DD, date in BCD
func msgWriteDate(t time.Time) []byte {
	return kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.WRITE_DATA_BY_LOCAL_IDENTIFIER, 0x99,
		bcd.FromUint8(uint8(t.Year()%100)),
		bcd.FromUint8(uint8(t.Month())),
		bcd.FromUint8(uint8(t.Day())),
	)
}

// 80 10 01 <n+1> 36 <chunk>
func msgTransferData(chunk []byte) ([]byte, error) {
	data := make([]byte, 0, len(chunk)+1)
	data = append(data, kwp2000.TRANSFER_DATA)
	return kwp2000.Message(kwp2000.AddrSession, append(data, chunk...)...)
}

// 85 10 01 31 03 00 <checksum>
func msgProgrammingRoutine(checksum uint16) []byte {
	return kwp2000.MustMessage(kwp2000.AddrSession, kwp2000.START_ROUTINE_BY_LOCAL_IDENTIFIER, 0x03, 0x00, byte(checksum>>8), byte(checksum))
}
