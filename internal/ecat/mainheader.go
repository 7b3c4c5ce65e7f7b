package ecat

// MainHeader is the decoded 512-byte header at the start of every ECAT 7.3
// file. It is read exactly once per file and never mutated afterwards.
type MainHeader struct {
	Magic                 string
	OriginalFileName      string
	SwVersion             uint16
	SystemType            uint16
	FileType              uint16
	SerialNumber          string
	ScanStartTime         uint32 // seconds since the Unix epoch
	IsotopeName           string
	IsotopeHalflife       float32 // seconds
	Radiopharmaceutical   string
	GantryTilt            float32
	GantryRotation        float32
	BedElevation          float32
	IntrinsicTilt         float32
	DistanceScanned       float32 // cm
	TransaxialFOV         float32 // cm
	CalibrationFactor     float32
	CalibrationUnits      uint16
	StudyType             string
	PatientID             string
	PatientName           string
	PatientSex            string
	PatientAge            float32
	PatientHeight         float32
	PatientWeight         float32
	PhysicianName         string
	OperatorName          string
	StudyDescription      string
	AcquisitionType       uint16
	PatientOrientation    uint16
	FacilityName          string
	NumPlanes             int16
	NumFrames             int16
	NumGates              int16
	NumBedPos             int16
	InitBedPosition       float32
	PlaneSeparation       float32 // cm
	AcquisitionMode       uint16
	BinSize               float32
	BranchingFraction     float32
	DoseStartTime         uint32 // seconds since the Unix epoch
	Dosage                float32
	WellCounterCorrFactor float32
	DataUnits             string
}

// knownSystemTypes enumerates the CTI/Siemens scanner model codes that write
// ECAT 7.x containers. Anything else is treated as an invalid header rather
// than decoded on faith.
var knownSystemTypes = map[uint16]string{
	128: "RPT",
	921: "EXACT 921",
	922: "EXACT 922",
	923: "EXACT 923",
	925: "ART 925",
	931: "931",
	951: "951",
	953: "953",
	961: "HR 961",
	962: "HR+ 962",
	966: "HR++ 966",
}

// SystemModel returns the scanner model name for a known system type code.
func (h *MainHeader) SystemModel() string {
	return knownSystemTypes[h.SystemType]
}

// DecodeMainHeader reads and validates the fixed-size main header. It does
// not touch any frame data.
func DecodeMainHeader(src *ByteSource) (*MainHeader, error) {
	blk, err := src.Block(0)
	if err != nil {
		return nil, err
	}
	h := &MainHeader{
		Magic:                 blk.string(0, 14),
		OriginalFileName:      blk.string(14, 32),
		SwVersion:             blk.uint16(46),
		SystemType:            blk.uint16(48),
		FileType:              blk.uint16(50),
		SerialNumber:          blk.string(52, 10),
		ScanStartTime:         blk.uint32(62),
		IsotopeName:           blk.string(66, 8),
		IsotopeHalflife:       blk.float32(74),
		Radiopharmaceutical:   blk.string(78, 32),
		GantryTilt:            blk.float32(110),
		GantryRotation:        blk.float32(114),
		BedElevation:          blk.float32(118),
		IntrinsicTilt:         blk.float32(122),
		DistanceScanned:       blk.float32(130),
		TransaxialFOV:         blk.float32(134),
		CalibrationFactor:     blk.float32(144),
		CalibrationUnits:      blk.uint16(148),
		StudyType:             blk.string(154, 12),
		PatientID:             blk.string(166, 16),
		PatientName:           blk.string(182, 32),
		PatientSex:            blk.string(214, 1),
		PatientAge:            blk.float32(216),
		PatientHeight:         blk.float32(220),
		PatientWeight:         blk.float32(224),
		PhysicianName:         blk.string(232, 32),
		OperatorName:          blk.string(264, 32),
		StudyDescription:      blk.string(296, 32),
		AcquisitionType:       blk.uint16(328),
		PatientOrientation:    blk.uint16(330),
		FacilityName:          blk.string(332, 20),
		NumPlanes:             blk.int16(352),
		NumFrames:             blk.int16(354),
		NumGates:              blk.int16(356),
		NumBedPos:             blk.int16(358),
		InitBedPosition:       blk.float32(360),
		PlaneSeparation:       blk.float32(424),
		AcquisitionMode:       blk.uint16(444),
		BinSize:               blk.float32(446),
		BranchingFraction:     blk.float32(450),
		DoseStartTime:         blk.uint32(454),
		Dosage:                blk.float32(458),
		WellCounterCorrFactor: blk.float32(462),
		DataUnits:             blk.string(466, 32),
	}
	if h.NumFrames <= 0 {
		return nil, decodeErr(ErrInvalidHeader, "main header", 354,
			"declared frame count %d must be positive", h.NumFrames)
	}
	if _, ok := knownSystemTypes[h.SystemType]; !ok {
		return nil, decodeErr(ErrInvalidHeader, "main header", 48,
			"unknown scanner system type %d", h.SystemType)
	}
	return h, nil
}
