// Package production reads the production data files the line's data
// collector writes next to the HMI.
//
// Daily and monthly output lives under one directory per month:
//
//	{root}/2026_03月/ProductData_2026_03_01.csv   hourly rows of one day
//	{root}/2026_03月/ProductData_2026_03.csv      daily rows of one month
//
// Both are read as a header line plus rows; the label, OK and NG columns
// are found by header substring ("时间", "OK", "NG"). Separately configured
// record files are served as whole tables.
//
// Files may be UTF-8 or GBK. Every read is retried with the same bounded
// linear backoff as the event log, since the collector rewrites the files
// while the HMI reads them. A missing file is an empty result.
package production
