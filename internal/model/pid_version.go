package model

// PidVersion is the legacy registration schema (table `pid_versions`): an
// append-only v2 -> v3 mapping (historically also aop -> v3, stored in the
// v2 column). Kept for backward lookups only; the engine never writes it.
type PidVersion struct {
	ID uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	V2 string `gorm:"column:v2;size:23;uniqueIndex:uidx_pid_versions_v2_v3,priority:1" json:"v2"`
	V3 string `gorm:"column:v3;size:255;uniqueIndex:uidx_pid_versions_v2_v3,priority:2" json:"v3"`
}

func (PidVersion) TableName() string {
	return "pid_versions"
}
