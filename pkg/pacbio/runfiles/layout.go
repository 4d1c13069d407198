package runfiles

// Directory and file names of a Revio SMRT cell directory.
const (
	StatisticsDir      = "statistics"
	UnzippedReportsDir = "unzipped_reports"
	MetadataDir        = "metadata"
	HiFiReadsDir       = "hifi_reads"

	CCSReportSuffix        = "ccs_report.json"
	ControlReport          = "control.report.json"
	LoadingReport          = "loading.report.json"
	RawDataReport          = "raw_data.report.json"
	SmrtlinkDatasetsReport = "smrtlink-datasets.json"

	ReportsArchiveSuffix   = ".reports.zip"
	TransferManifestSuffix = ".transferdone"
	RunMetadataSuffix      = ".metadata.xml"
	BAMSuffix              = ".bam"
	UnassignedToken        = "unassigned"

	ValidatedMarker = "is_valid"
	CompletedMarker = "post_processing_completed"
	ProcessingLock  = "post_processing.lock"
)
