package metrics

const (
	ClientReqsSentH      = "The total number of NTP requests sent"
	ClientReqsSentN      = "timekeeper_client_reqs_sent"
	ClientPktsReceivedH  = "The total number of NTP packets received"
	ClientPktsReceivedN  = "timekeeper_client_pkts_received"
	ClientRespsAcceptedH = "The total number of NTP responses accepted as valid"
	ClientRespsAcceptedN = "timekeeper_client_resps_accepted"
	ClientRespsRejectedH = "The total number of NTP responses rejected by validation"
	ClientRespsRejectedN = "timekeeper_client_resps_rejected"
	ClientHostsFailedH   = "The total number of per-host network failures during fallback"
	ClientHostsFailedN   = "timekeeper_client_hosts_failed"

	SyncLastCorrH = "The correction applied to the RTC by the last synchronization, in microseconds"
	SyncLastCorrN = "timekeeper_sync_last_corr_us"
	SyncTotalH    = "The total number of RTC synchronizations performed"
	SyncTotalN    = "timekeeper_sync_total"

	DriftPPMH         = "The current RTC drift estimate in parts per million"
	DriftPPMN         = "timekeeper_drift_ppm"
	DriftCompensatedH = "The total number of microseconds applied by drift compensation"
	DriftCompensatedN = "timekeeper_drift_compensated_us_total"
)
