package item

// MagStats is the canonical, decoded representation of a Mag's growth
// stats and state, independent of how any particular client version
// packs them into an item record's Data1/Data2.
type MagStats struct {
	IQ            uint16
	Synchro       uint16
	Def           uint16
	Pow           uint16
	Dex           uint16
	Mind          uint16
	Flags         uint8
	PhotonBlasts  uint8
	Color         uint8
}

// DefaultMagStats matches a freshly-created Mag's starting values.
func DefaultMagStats() MagStats {
	return MagStats{Synchro: 40, Def: 500, Color: 14}
}

const maxSynchro = 120

func (m MagStats) DefLevel() uint16  { return m.Def / 100 }
func (m MagStats) PowLevel() uint16  { return m.Pow / 100 }
func (m MagStats) DexLevel() uint16  { return m.Dex / 100 }
func (m MagStats) MindLevel() uint16 { return m.Mind / 100 }

// Level is the sum of the four per-stat levels, matching the client's
// own displayed Mag level.
func (m MagStats) Level() uint16 {
	return m.DefLevel() + m.PowLevel() + m.DexLevel() + m.MindLevel()
}

// ClampSynchro saturates Synchro at its maximum of 120.
func (m *MagStats) ClampSynchro() {
	if m.Synchro > maxSynchro {
		m.Synchro = maxSynchro
	}
}

// AssignMagStats writes the canonical layout (data1[4:12] as four
// little-endian uint16 stat fields, data2 as
// {synchro_lo, iq, flags|photon_blasts, color}) into it, which must
// already be a Kind() == KindMag item.
func (it *Item) AssignMagStats(m MagStats) {
	m.ClampSynchro()
	putU16(it.Data1[4:6], m.Def)
	putU16(it.Data1[6:8], m.Pow)
	putU16(it.Data1[8:10], m.Dex)
	putU16(it.Data1[10:12], m.Mind)
	it.Data2[0] = byte(m.Synchro)
	it.Data2[1] = byte(m.IQ)
	it.Data2[2] = m.Flags | m.PhotonBlasts
	it.Data2[3] = m.Color
}

// MagStats decodes the canonical layout AssignMagStats wrote back out.
func (it Item) MagStats() MagStats {
	return MagStats{
		Def:          getU16(it.Data1[4:6]),
		Pow:          getU16(it.Data1[6:8]),
		Dex:          getU16(it.Data1[8:10]),
		Mind:         getU16(it.Data1[10:12]),
		Synchro:      uint16(it.Data2[0]),
		IQ:           uint16(it.Data2[1]),
		Flags:        it.Data2[2] &^ 0x07,
		PhotonBlasts: it.Data2[2] & 0x07,
		Color:        it.Data2[3],
	}
}

// photon blast slot flags, packed into the low 3 bits of the byte
// AssignMagStats stores at Data2[2].
const (
	pbCenter = 0x01
	pbRight  = 0x02
	pbLeft   = 0x04
)

var pbSlotBits = [3]uint8{pbCenter, pbRight, pbLeft}

// MagHasPhotonBlastInSlot reports whether slot (0=center, 1=right,
// 2=left) has a photon blast assigned.
func (it Item) MagHasPhotonBlastInSlot(slot int) bool {
	if slot < 0 || slot > 2 {
		return false
	}
	return it.Data2[2]&pbSlotBits[slot] != 0
}

// AddMagPhotonBlast sets slot's photon blast bit.
func (it *Item) AddMagPhotonBlast(slot int) {
	if slot < 0 || slot > 2 {
		return
	}
	it.Data2[2] |= pbSlotBits[slot]
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
