package valueobject

// Сырые данные, которые возвращают провайдеры метрик.
// Провайдеры заполняют только то, что смогли прочитать; классификация
// выполняется в domain/service.

// MountUsage описывает заполненность одной точки монтирования
type MountUsage struct {
	Mountpoint  string
	Device      string
	Fstype      string
	TotalBytes  uint64
	UsedBytes   uint64
	FreeBytes   uint64
	UsedPercent float64
}

// DiskReading содержит данные по всем смонтированным томам
type DiskReading struct {
	Mounts []MountUsage
}

// MemoryReading содержит данные по оперативной памяти и swap
type MemoryReading struct {
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	SwapTotalBytes uint64
	SwapUsedBytes  uint64
}

// CPUReading содержит мгновенную загрузку CPU
type CPUReading struct {
	UsagePercent float64
	Cores        int
	ModelName    string
	Load1        float64
	Load5        float64
	Load15       float64
}

// InterfaceStats содержит счетчики одного сетевого интерфейса
type InterfaceStats struct {
	Name      string
	BytesSent uint64
	BytesRecv uint64
	ErrIn     uint64
	ErrOut    uint64
	DropIn    uint64
	DropOut   uint64
}

// ConnectionStats группирует соединения по состоянию
type ConnectionStats struct {
	Total       int
	Established int
	Listening   int
	TimeWait    int
	CloseWait   int
}

// NetworkReading содержит агрегированные сетевые счетчики
type NetworkReading struct {
	RxErrors    uint64
	TxErrors    uint64
	RxDropped   uint64
	TxDropped   uint64
	Connections ConnectionStats
	Interfaces  []InterfaceStats
}

// ProcessInfo описывает один процесс
type ProcessInfo struct {
	PID           int32
	Name          string
	CPUPercent    float64
	MemoryPercent float64
}

// ProcessReading содержит таблицу процессов
type ProcessReading struct {
	Total     int
	Processes []ProcessInfo
}

// LatencySample результат серии HTTP проб.
// Samples всегда имеет длину Attempts: неудачные попытки записываются
// значением таймаута.
type LatencySample struct {
	URL          string
	Attempts     int
	TimeoutMs    float64
	Samples      []float64
	SuccessCount int
	Errors       []string
}
