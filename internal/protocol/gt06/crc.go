package gt06

// CRC-16/X.25：反射输入，多项式 0x8408（0x1021 反射），初值 0xFFFF，结果取反
const crcPoly = 0x8408

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint16 {
	var t [256]uint16
	for i := range t {
		c := uint16(i)
		for j := 0; j < 8; j++ {
			if c&1 != 0 {
				c = (c >> 1) ^ crcPoly
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}
	return t
}

// CRC16 查表法计算 CRC-16/X.25
func CRC16(b []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, v := range b {
		crc = (crc >> 8) ^ crcTable[(crc^uint16(v))&0xFF]
	}
	return ^crc
}

// crc16Bitwise 逐位计算，与 CRC16 结果一致
func crc16Bitwise(b []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, v := range b {
		crc ^= uint16(v)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}
